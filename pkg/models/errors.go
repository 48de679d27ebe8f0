package models

import "errors"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrBookNotFound    = errors.New("book not found")
	ErrNoteNotFound    = errors.New("note not found")
	ErrCardNotFound    = errors.New("review card not found")
	ErrInvalidLinkCode = errors.New("invalid link code")
)
