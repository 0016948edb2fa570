package model

type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=255"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ErrorResponse carries the per-field messages of a failed validation.
type ErrorResponse struct {
	Error []string `json:"error"`
}
