package store

import "errors"

var (
	ErrNotFound           = errors.New("record not found")
	ErrCategoryInUse      = errors.New("category has products")
	ErrTableOccupied      = errors.New("table is occupied")
	ErrInvalidFilter      = errors.New("invalid filter")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownReference   = errors.New("referenced record does not exist")
)
