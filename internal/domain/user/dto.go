// internal/domain/user/dto.go
package user

type RegisterRequest struct {
	FullName string `json:"full_name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// UserSummary is the admin listing row: a user plus activity counters.
type UserSummary struct {
	User
	OrderCount    int `json:"order_count"`
	DiscountCount int `json:"discount_count"`
}

type UserListFilters struct {
	Role   string `form:"role"`
	Search string `form:"search"`
}
