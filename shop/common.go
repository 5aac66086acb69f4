package shop

import (
	"errors"
)

var ErrEmptyItemPricePool = errors.New("item price pool is empty")
var ErrInvalidUserCount = errors.New("user count must be positive")
var ErrInvalidItemCount = errors.New("item count must be positive")
var ErrInvalidMoney = errors.New("invalid money amount")
var ErrUnknownPageType = errors.New("unknown page type")
