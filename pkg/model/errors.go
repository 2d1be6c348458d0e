package model

import "github.com/m-mizutani/goerr/v2"

var (
	ErrMemoryNotFound    = goerr.New("memory not found")
	ErrInvalidMemoryType = goerr.New("invalid memory type")
	ErrInvalidArgument   = goerr.New("invalid argument")
	ErrPersonaNotFound   = goerr.New("persona not found")
)
