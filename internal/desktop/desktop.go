// Package desktop drops the castpilot icons and desktop entry into the
// user's XDG data directory so desktop shells can resolve the MPRIS
// DesktopEntry property and show proper artwork fallbacks. Everything
// here is best effort, a read-only home directory just means missing
// icons.
package desktop

import (
	_ "embed"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

//go:embed icons/castpilot.svg
var darkIconSVG []byte

//go:embed icons/castpilot-light.svg
var lightIconSVG []byte

const desktopEntry = `[Desktop Entry]
Type=Application
Name=Castpilot
Comment=Control a cast device from the desktop
Exec=castpilot
Icon=castpilot
Terminal=false
Categories=AudioVideo;Player;
`

var (
	installIconsOnce sync.Once
	lightIconURI     string
	darkIconURI      string

	installEntryOnce sync.Once
	entryPath        string
)

// InstallIcons writes the embedded cast icons under the hicolor theme
// and returns file URIs for them. The write happens once per process,
// a failed install leaves the affected URI empty.
func InstallIcons() (light, dark string) {
	installIconsOnce.Do(func() {
		dir, err := iconDir()
		if err != nil {
			log.Debug().Err(err).Msg("Failed to locate the icon directory")
			return
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Debug().Err(err).Str("Path", dir).Msg("Failed to create the icon directory")
			return
		}

		lightIconURI = writeIcon(filepath.Join(dir, "castpilot-light.svg"), lightIconSVG)
		darkIconURI = writeIcon(filepath.Join(dir, "castpilot.svg"), darkIconSVG)
	})
	return lightIconURI, darkIconURI
}

// InstallDesktopEntry writes castpilot.desktop under the applications
// directory and returns its path, empty when the write failed. Like the
// icons it runs once per process.
func InstallDesktopEntry() string {
	installEntryOnce.Do(func() {
		dir, err := applicationsDir()
		if err != nil {
			log.Debug().Err(err).Msg("Failed to locate the applications directory")
			return
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Debug().Err(err).Str("Path", dir).Msg("Failed to create the applications directory")
			return
		}

		path := filepath.Join(dir, "castpilot.desktop")
		if err := os.WriteFile(path, []byte(desktopEntry), 0644); err != nil {
			log.Debug().Err(err).Str("Path", path).Msg("Failed to write the desktop entry")
			return
		}
		entryPath = path
	})
	return entryPath
}

func writeIcon(path string, data []byte) string {
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Debug().Err(err).Str("Path", path).Msg("Failed to write icon")
		return ""
	}
	return fileURI(path)
}

// fileURI converts an absolute path to a file:// URI the way MPRIS art
// URL consumers expect it.
func fileURI(path string) string {
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}

func dataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir, nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "dataDir error")
	}
	return filepath.Join(home, ".local", "share"), nil
}

func iconDir() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "icons", "hicolor", "scalable", "apps"), nil
}

func applicationsDir() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "applications"), nil
}
