package vdfbinary_test

import (
	"bytes"
	"testing"

	"github.com/sofl-project/sofl-core/internal/vdfbinary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShortcuts_WrittenBySteamLayout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := vdfbinary.WriteShortcuts(&buf, []vdfbinary.Shortcut{
		{
			AppID:              3414143657,
			AppName:            "Control",
			Exe:                `"/games/Control/Control_DX12.exe"`,
			StartDir:           `"/games/Control/"`,
			IsHidden:           true,
			AllowOverlay:       true,
			AllowDesktopConfig: true,
		},
		{
			AppID:    3022575626,
			AppName:  "Cyberpunk 2077",
			Exe:      `"/games/Cyberpunk 2077/bin/x64/Cyberpunk2077.exe"`,
			StartDir: `"/games/Cyberpunk 2077/bin/x64/"`,
			Icon:     "/icons/cyberpunk.ico",
			Tags:     []string{"favorite"},
		},
		{
			AppID:         3043193801,
			AppName:       "Skate 3",
			Exe:           "/usr/bin/flatpak",
			StartDir:      "/usr/bin",
			LaunchOptions: "run org.example.Emu",
			Tags:          []string{"Sport", "Action", "Skate"},
		},
	})
	require.NoError(t, err)

	shortcuts, err := vdfbinary.ParseShortcuts(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, shortcuts, 3)

	// Verify first shortcut
	assert.Equal(t, uint32(3414143657), shortcuts[0].AppID)
	assert.Equal(t, "Control", shortcuts[0].AppName)
	assert.Contains(t, shortcuts[0].Exe, "Control_DX12.exe")
	assert.Empty(t, shortcuts[0].Icon)
	assert.True(t, shortcuts[0].IsHidden)
	assert.True(t, shortcuts[0].AllowOverlay)
	assert.Empty(t, shortcuts[0].Tags)

	// Verify second shortcut has an icon and tag
	assert.Equal(t, uint32(3022575626), shortcuts[1].AppID)
	assert.Equal(t, "Cyberpunk 2077", shortcuts[1].AppName)
	assert.Contains(t, shortcuts[1].Icon, "cyberpunk.ico")
	assert.False(t, shortcuts[1].IsHidden)
	assert.False(t, shortcuts[1].AllowOverlay, "explicit false flag survives")
	assert.Equal(t, []string{"favorite"}, shortcuts[1].Tags)

	// Verify third shortcut has multiple tags
	assert.Equal(t, uint32(3043193801), shortcuts[2].AppID)
	assert.Equal(t, "Skate 3", shortcuts[2].AppName)
	assert.Equal(t, "run org.example.Emu", shortcuts[2].LaunchOptions)
	assert.Equal(t, []string{"Sport", "Action", "Skate"}, shortcuts[2].Tags)
}

func TestParseShortcuts_EmptyFile(t *testing.T) {
	t.Parallel()

	_, err := vdfbinary.ParseShortcuts(bytes.NewReader([]byte{}))
	assert.ErrorIs(t, err, vdfbinary.ErrEmptyVDF)
}

func TestParseShortcuts_InvalidFormat(t *testing.T) {
	t.Parallel()

	// Text VDF format instead of binary
	textVdf := []byte(`"shortcuts" { }`)
	_, err := vdfbinary.ParseShortcuts(bytes.NewReader(textVdf))
	assert.ErrorIs(t, err, vdfbinary.ErrNotBinaryVDF)
}

func TestParseShortcuts_NoShortcutsKey(t *testing.T) {
	t.Parallel()

	// Valid binary VDF but missing "shortcuts" key
	// Binary VDF with empty map: marker(0x00) + "other" + null + end(0x08) + end(0x08)
	emptyVdf := []byte{0x00, 'o', 't', 'h', 'e', 'r', 0x00, 0x08, 0x08}
	_, err := vdfbinary.ParseShortcuts(bytes.NewReader(emptyVdf))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shortcuts")
}

// rawVDF builds binary VDF by hand so tests can produce layouts the
// encoder refuses to write.
type rawVDF struct {
	bytes.Buffer
}

func (r *rawVDF) mapStart(key string) *rawVDF {
	r.WriteByte(0x00)
	r.WriteString(key)
	r.WriteByte(0x00)
	return r
}

func (r *rawVDF) str(key, value string) *rawVDF {
	r.WriteByte(0x01)
	r.WriteString(key)
	r.WriteByte(0x00)
	r.WriteString(value)
	r.WriteByte(0x00)
	return r
}

func (r *rawVDF) num(key string, raw ...byte) *rawVDF {
	r.WriteByte(0x02)
	r.WriteString(key)
	r.WriteByte(0x00)
	r.Write(raw)
	return r
}

func (r *rawVDF) end(n int) *rawVDF {
	for range n {
		r.WriteByte(0x08)
	}
	return r
}

// TestParseShortcuts_MissingOptionalFields tests that shortcuts without
// optional fields (tags, icon, IsHidden) are parsed successfully.
func TestParseShortcuts_MissingOptionalFields(t *testing.T) {
	t.Parallel()

	var r rawVDF
	r.mapStart("shortcuts").mapStart("0").
		num("appid", 0x01, 0x02, 0x03, 0x04).
		str("AppName", "Test Game").
		str("Exe", "/path/to/game").
		str("StartDir", "/path/to").
		end(3)

	shortcuts, err := vdfbinary.ParseShortcuts(bytes.NewReader(r.Bytes()))
	require.NoError(t, err, "should parse shortcuts with missing optional fields")
	require.Len(t, shortcuts, 1)

	assert.Equal(t, uint32(0x04030201), shortcuts[0].AppID)
	assert.Equal(t, "Test Game", shortcuts[0].AppName)
	assert.Equal(t, "/path/to/game", shortcuts[0].Exe)
	assert.Equal(t, "/path/to", shortcuts[0].StartDir)
	assert.Empty(t, shortcuts[0].Icon, "missing icon should default to empty string")
	assert.False(t, shortcuts[0].IsHidden, "missing IsHidden should default to false")
	assert.True(t, shortcuts[0].AllowOverlay, "missing AllowOverlay should default to true")
	assert.Empty(t, shortcuts[0].Tags, "missing tags should default to empty slice")
}

func TestParseShortcuts_MissingRequiredField(t *testing.T) {
	t.Parallel()

	fields := []string{"appid", "AppName", "Exe", "StartDir"}

	for _, missing := range fields {
		t.Run(missing, func(t *testing.T) {
			t.Parallel()

			var r rawVDF
			r.mapStart("shortcuts").mapStart("0")
			if missing != "appid" {
				r.num("appid", 0x01, 0x00, 0x00, 0x00)
			}
			for _, f := range fields[1:] {
				if f != missing {
					r.str(f, "/value")
				}
			}
			r.end(3)

			_, err := vdfbinary.ParseShortcuts(bytes.NewReader(r.Bytes()))
			require.Error(t, err)
			assert.Contains(t, err.Error(), missing)
		})
	}
}

func TestParseShortcuts_TruncatedNumber(t *testing.T) {
	t.Parallel()

	// Number field with only 2 bytes instead of 4
	var r rawVDF
	r.mapStart("shortcuts").mapStart("0").num("appid", 0x01, 0x02)

	_, err := vdfbinary.ParseShortcuts(bytes.NewReader(r.Bytes()))
	assert.ErrorIs(t, err, vdfbinary.ErrCorruptedVDF)
}

func TestParseShortcuts_CorruptedFile(t *testing.T) {
	t.Parallel()

	// Valid start but truncated mid-parse
	corrupted := []byte{0x00, 's', 'h', 'o', 'r', 't', 'c', 'u', 't', 's', 0x00, 0x00}
	_, err := vdfbinary.ParseShortcuts(bytes.NewReader(corrupted))
	require.Error(t, err)
}

func TestParseShortcuts_NonSequentialIndex(t *testing.T) {
	t.Parallel()

	// shortcuts { 1 { ... } } - starts at 1 instead of 0
	var r rawVDF
	r.mapStart("shortcuts").mapStart("1").num("appid", 0x01, 0x00, 0x00, 0x00).end(3)

	_, err := vdfbinary.ParseShortcuts(bytes.NewReader(r.Bytes()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index")
}

func TestParseShortcuts_EmptyShortcutsMap(t *testing.T) {
	t.Parallel()

	var r rawVDF
	r.mapStart("shortcuts").end(2)

	shortcuts, err := vdfbinary.ParseShortcuts(bytes.NewReader(r.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, shortcuts)
}

func TestShortcutAppID(t *testing.T) {
	t.Parallel()

	id := vdfbinary.ShortcutAppID(`"/games/Foo/foo.exe"`, "Foo")

	assert.NotZero(t, id&0x80000000, "high bit marks a non-Steam shortcut")
	assert.Equal(t, id, vdfbinary.ShortcutAppID(`"/games/Foo/foo.exe"`, "Foo"))
	assert.NotEqual(t, id, vdfbinary.ShortcutAppID(`"/games/Foo/foo.exe"`, "Bar"))
	assert.Equal(t, uint64(id)<<32|0x02000000, vdfbinary.RunGameID(id))
}
