// site.go loads the config.json describing the published index.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Defaults applied to a site config that omits the optional keys.
const (
	DefaultSiteDescription = "Welcome to your private Python package index!"
	DefaultSiteImageURL    = "https://pypi.org/static/images/logo-small.95de8436.svg"
)

// ErrInvalidSiteConfig is returned when config.json is not an object with the
// required keys.
var ErrInvalidSiteConfig = errors.New("invalid site config")

// SiteConfig describes the published index
type SiteConfig struct {
	URL         string `mapstructure:"url"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	ImageURL    string `mapstructure:"image_url"`
}

// LoadSite reads the site config.json. url and title are required.
func LoadSite(path string) (*SiteConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("description", DefaultSiteDescription)
	v.SetDefault("image_url", DefaultSiteImageURL)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrInvalidSiteConfig, path, err)
	}
	if !v.InConfig("url") {
		return nil, fmt.Errorf("%w: config does not specify a url", ErrInvalidSiteConfig)
	}
	if !v.InConfig("title") {
		return nil, fmt.Errorf("%w: config does not specify a title", ErrInvalidSiteConfig)
	}

	var site SiteConfig
	if err := v.Unmarshal(&site); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSiteConfig, err)
	}
	return &site, nil
}
