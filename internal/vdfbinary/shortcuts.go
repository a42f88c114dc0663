package vdfbinary

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strconv"
)

// Shortcut represents a Steam non-Steam game shortcut.
// Fields are ordered for optimal memory alignment.
type Shortcut struct {
	AppName             string
	Exe                 string
	StartDir            string
	Icon                string
	ShortcutPath        string
	LaunchOptions       string
	DevkitGameID        string
	FlatpakAppID        string
	Tags                []string
	AppID               uint32
	LastPlayTime        uint32
	DevkitOverrideAppID uint32
	IsHidden            bool
	AllowDesktopConfig  bool
	AllowOverlay        bool
	OpenVR              bool
	Devkit              bool
}

// ParseShortcuts parses Steam's shortcuts.vdf binary format.
// Tags, icon and the flag fields are optional to handle shortcuts created by
// third-party tools.
func ParseShortcuts(buf io.Reader) ([]Shortcut, error) {
	root, err := Parse(buf)
	if err != nil {
		return []Shortcut{}, err
	}

	shortcutsMap, ok := root.GetMap("shortcuts")
	if !ok {
		return []Shortcut{}, errors.New("could not find 'shortcuts' in parsed vdf")
	}

	shortcuts := make([]Shortcut, len(shortcutsMap))

	for i := range shortcuts {
		key := strconv.Itoa(i)

		s, ok := shortcutsMap.GetMap(key)
		if !ok {
			return []Shortcut{}, errors.New("vdf that should be an array does not have the corresponding index")
		}

		appID, ok := s.GetUint("appid")
		if !ok {
			return []Shortcut{}, errors.New("could not get key 'appid' for one of the shortcuts")
		}

		appName, ok := s.GetString("AppName")
		if !ok {
			return []Shortcut{}, errors.New("could not get key 'AppName' for one of the shortcuts")
		}

		exe, ok := s.GetString("Exe")
		if !ok {
			return []Shortcut{}, errors.New("could not get key 'Exe' for one of the shortcuts")
		}

		startDir, ok := s.GetString("StartDir")
		if !ok {
			return []Shortcut{}, errors.New("could not get key 'StartDir' for one of the shortcuts")
		}

		sc := Shortcut{
			AppID:              appID,
			AppName:            appName,
			Exe:                exe,
			StartDir:           startDir,
			AllowDesktopConfig: true,
			AllowOverlay:       true,
		}
		sc.Icon, _ = s.GetString("icon")
		sc.ShortcutPath, _ = s.GetString("ShortcutPath")
		sc.LaunchOptions, _ = s.GetString("LaunchOptions")
		sc.DevkitGameID, _ = s.GetString("DevkitGameID")
		sc.FlatpakAppID, _ = s.GetString("FlatpakAppID")
		sc.IsHidden, _ = s.GetBool("IsHidden")
		sc.OpenVR, _ = s.GetBool("OpenVR")
		sc.Devkit, _ = s.GetBool("Devkit")
		sc.LastPlayTime, _ = s.GetUint("LastPlayTime")
		sc.DevkitOverrideAppID, _ = s.GetUint("DevkitOverrideAppID")
		if v, ok := s.GetBool("AllowDesktopConfig"); ok {
			sc.AllowDesktopConfig = v
		}
		if v, ok := s.GetBool("AllowOverlay"); ok {
			sc.AllowOverlay = v
		}

		if tagsMap, ok := s.GetMap("tags"); ok {
			for j := range len(tagsMap) {
				ts, ok := tagsMap.GetString(strconv.Itoa(j))
				if !ok {
					continue
				}
				sc.Tags = append(sc.Tags, ts)
			}
		}

		shortcuts[i] = sc
	}

	return shortcuts, nil
}

// WriteShortcuts encodes shortcuts in the layout Steam itself writes.
func WriteShortcuts(w io.Writer, shortcuts []Shortcut) error {
	enc := NewEncoder(w)

	enc.BeginMap("shortcuts")
	for i := range shortcuts {
		s := &shortcuts[i]
		enc.BeginMap(strconv.Itoa(i))
		enc.Uint32("appid", s.AppID)
		enc.String("AppName", s.AppName)
		enc.String("Exe", s.Exe)
		enc.String("StartDir", s.StartDir)
		enc.String("icon", s.Icon)
		enc.String("ShortcutPath", s.ShortcutPath)
		enc.String("LaunchOptions", s.LaunchOptions)
		enc.Bool("IsHidden", s.IsHidden)
		enc.Bool("AllowDesktopConfig", s.AllowDesktopConfig)
		enc.Bool("AllowOverlay", s.AllowOverlay)
		enc.Bool("OpenVR", s.OpenVR)
		enc.Bool("Devkit", s.Devkit)
		enc.String("DevkitGameID", s.DevkitGameID)
		enc.Uint32("DevkitOverrideAppID", s.DevkitOverrideAppID)
		enc.Uint32("LastPlayTime", s.LastPlayTime)
		enc.String("FlatpakAppID", s.FlatpakAppID)
		enc.StringList("tags", s.Tags)
		enc.EndMap()
	}
	enc.EndMap()

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode shortcuts: %w", err)
	}
	return nil
}

// ShortcutAppID derives the 32-bit id Steam assigns a non-Steam shortcut
// from its quoted executable and name.
func ShortcutAppID(exe, appName string) uint32 {
	return crc32.ChecksumIEEE([]byte(exe+appName)) | 0x80000000
}

// RunGameID converts a shortcut app id to the 64-bit id used by
// steam://rungameid/ URLs.
func RunGameID(appID uint32) uint64 {
	return (uint64(appID) << 32) | 0x02000000
}
