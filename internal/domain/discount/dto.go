// internal/domain/discount/dto.go
package discount

type GrantRequest struct {
	UserID  string  `json:"user_id" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Message string  `json:"message" binding:"required,max=500"`
}
