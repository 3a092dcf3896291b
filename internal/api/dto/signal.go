package dto

import "github.com/go-playground/validator/v10"

// SignalRequest carries raw channel text submitted through the admin API.
type SignalRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

type ReloadMappingsResponse struct {
	Count int `json:"count"`
}

type TokenRequest struct {
	Subject string `json:"subject" validate:"required"`
	TTL     string `json:"ttl" validate:"required"`
}

var Validate = validator.New()
