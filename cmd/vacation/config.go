// cmd/vacation/config.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmp/vacation/log"
	"github.com/mmp/vacation/math"
	"github.com/mmp/vacation/platform"
	"github.com/mmp/vacation/renderer"
	"github.com/mmp/vacation/util"
)

const CurrentConfigVersion = 1

type Config struct {
	platform.Config

	Version int

	MaintainAspectRatio bool
	DesiredAspectRatio  float32

	// DataDir is the directory holding the fonts, shaders, and textures
	// directories; if empty, it is searched for starting at the working
	// directory.
	DataDir string

	UIFont string
	// UIFontScale gives the font's pixel size as a fraction of the
	// offscreen target's height.
	UIFontScale float32

	Atlas renderer.AtlasConfig
	Fonts renderer.FontOptions

	SampleText string
}

func configFilePath(lg *log.Logger) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		lg.Errorf("Unable to find user config dir: %v", err)
		dir = "."
	}

	dir = filepath.Join(dir, "Vacation")
	err = os.MkdirAll(dir, 0o700)
	if err != nil {
		lg.Errorf("%s: unable to make directory for config file: %v", dir, err)
	}

	return filepath.Join(dir, "config.json")
}

func getDefaultConfig() *Config {
	fonts := renderer.DefaultFontOptions()
	fonts.BuiltinFallback = true

	return &Config{
		Config: platform.Config{
			InitialWindowPosition: [2]int{100, 100},
			EnableVSync:           true,
		},
		Version:             CurrentConfigVersion,
		MaintainAspectRatio: true,
		DesiredAspectRatio:  16. / 9.,
		UIFont:              "Roboto-Regular",
		UIFontScale:         0.025,
		Atlas:               renderer.DefaultAtlasConfig(),
		Fonts:               fonts,
		SampleText:          "The quick brown fox jumps over the lazy dog.\nÀ bientôt, señor Müller: 1234567890",
	}
}

// LoadOrMakeDefaultConfig reads the configuration from the given file;
// fields not present there keep their default values. A missing file is
// not an error. Unknown options are logged but otherwise ignored.
func LoadOrMakeDefaultConfig(fn string, lg *log.Logger) (*Config, error) {
	lg.Infof("Loading config from: %s", fn)

	config := getDefaultConfig()

	b, err := os.ReadFile(fn)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	} else if err != nil {
		return config, err
	}

	if err := util.UnmarshalJSONBytes(b, config); err != nil {
		return getDefaultConfig(), err
	}
	if e := checkConfig(fn, b); e.HaveErrors() {
		lg.Warnf("%s", e.String())
	}

	if config.Version < CurrentConfigVersion {
		config.Version = CurrentConfigVersion
	}

	return config, nil
}

// checkConfig strictly decodes the config file's contents, reporting
// options that don't correspond to any Config field.
func checkConfig(fn string, b []byte) *util.ErrorLogger {
	var e util.ErrorLogger
	e.Push(fn)
	util.CheckJSON[Config](b, &e)
	e.Pop()
	return &e
}

func (c *Config) Validate(e *util.ErrorLogger) {
	e.Push("config")
	defer e.Pop()

	if c.UIFont == "" {
		e.ErrorString("no UI font specified")
	}
	if c.UIFontScale <= 0 || c.UIFontScale > 1 {
		e.ErrorString("ui_font_scale %f must be in (0, 1]", c.UIFontScale)
	}
	if c.MaintainAspectRatio && c.DesiredAspectRatio <= 0 {
		e.ErrorString("desired aspect ratio %f must be positive", c.DesiredAspectRatio)
	}
	c.Atlas.Validate(e)
	c.Fonts.Validate(e)
}

// UIFontSize returns the pixel size of the UI font for an offscreen
// target of the given height.
func (c *Config) UIFontSize(targetHeight int) int {
	return max(6, math.Round(c.UIFontScale*float32(targetHeight)))
}

func (c *Config) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(c)
}

func (c *Config) Save(fn string, lg *log.Logger) error {
	lg.Infof("Saving config to: %s", fn)
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.Encode(f)
}

// SaveIfChanged records the current window geometry and writes the
// configuration if it differs from what's on disk.
func (c *Config) SaveIfChanged(fn string, plat platform.Platform, lg *log.Logger) bool {
	if plat != nil {
		c.InitialWindowSize = plat.WindowSize()
		c.InitialWindowPosition = plat.WindowPosition()
	}

	onDisk, err := os.ReadFile(fn)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		lg.Warnf("%s: unable to read config file: %v", fn, err)
	}

	var b strings.Builder
	if err = c.Encode(&b); err != nil {
		lg.Errorf("%s: unable to encode config: %v", fn, err)
		return false
	}

	if b.String() == string(onDisk) {
		return false
	}

	if err := c.Save(fn, lg); err != nil {
		lg.Errorf("%s: unable to save config: %v", fn, err)
		return false
	}
	return true
}
