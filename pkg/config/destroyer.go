package config

import (
	"github.com/tauraamui/idlesqueeze/internal/config"
	"github.com/tauraamui/idlesqueeze/pkg/configdef"
)

type Destroyer interface {
	configdef.Destroyer
}

func DefaultDestroyer() Destroyer {
	return config.DefaultDestroyer()
}
