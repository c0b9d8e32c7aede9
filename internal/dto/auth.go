// Package dto defines the request and response bodies of the REST API.
package dto

import "github.com/wavelens/gradient/internal/model"

// RegisterRequest creates a user account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,slug"`
	Name     string `json:"name" binding:"required,max=128"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest exchanges credentials for a session token.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the session token and its owner.
type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}
