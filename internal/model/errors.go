package model

import "errors"

var ErrInference = errors.New("inference failed")
