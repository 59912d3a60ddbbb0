package models

import "errors"

var (
	ErrValidation        = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient diamonds")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrOverflow          = errors.New("amount overflow")
	ErrBattleNotStarted  = errors.New("battle not started")
	ErrBattleEnded       = errors.New("battle already ended")
)
