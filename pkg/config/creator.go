package config

import (
	"github.com/tauraamui/idlesqueeze/internal/config"
	"github.com/tauraamui/idlesqueeze/pkg/configdef"
)

type Creator interface {
	configdef.Creator
}

func DefaultCreator() Creator {
	return config.DefaultCreator()
}
