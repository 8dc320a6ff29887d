package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/minimarket/internal/model"
)

func testProfile() *model.Profile {
	p := model.NewProfile("profile_1704110400_0042", "Alice", model.AvatarExplorer, model.LanguageSwedish,
		time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	p.LastPlayed = time.Date(2024, 1, 2, 8, 30, 15, 0, time.UTC)
	p.Settings[model.SettingMusicVolume] = 0.5
	p.Settings[model.SettingHighContrast] = true
	return p
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		profile func() *model.Profile
	}{
		{"defaults", testProfile},
		{"with progress", func() *model.Profile {
			p := testProfile()
			p.Progress = map[string]any{
				"counting": map[string]any{"level": 2.0, "stars": 5.0},
				"badges":   []any{"apple", "banana"},
			}
			return p
		}},
		{"with unknown setting", func() *model.Profile {
			p := testProfile()
			p.Settings["font"] = "large"
			return p
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.profile()

			data, err := Serialize(p)
			require.NoError(t, err)

			decoded, err := Deserialize(data)
			require.NoError(t, err)
			assert.Equal(t, p, decoded)
		})
	}
}

func TestSerializeWritesIndentedFields(t *testing.T) {
	data, err := Serialize(testProfile())
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, "\n  \"id\": \"profile_1704110400_0042\"")
	assert.Contains(t, s, "\"created_date\": \"2024-01-01T12:00:00\"")
	assert.Contains(t, s, "\"last_played\": \"2024-01-02T08:30:15\"")
	assert.NotContains(t, s, "progress")
}

func TestSerializeNil(t *testing.T) {
	_, err := Serialize(nil)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestDeserializeMissingAvatarUsesDefault(t *testing.T) {
	data := []byte(`{
		"id": "profile_1_0001",
		"name": "Alice",
		"language": "sv",
		"created_date": "2024-01-01T12:00:00"
	}`)

	p, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, model.AvatarDefault, p.Avatar)
	assert.Equal(t, model.DefaultSettings(), p.Settings)
	assert.Equal(t, p.CreatedDate, p.LastPlayed)
}

func TestDeserializeRepairsSettings(t *testing.T) {
	data := []byte(`{
		"id": "profile_1_0001",
		"name": "Alice",
		"avatar": "baker",
		"language": "en",
		"created_date": "2024-01-01T12:00:00",
		"last_played": "2024-01-01T12:00:00",
		"settings": {"music_volume": 3, "sfx_volume": "max", "show_hints": 1}
	}`)

	p, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Settings[model.SettingMusicVolume])
	assert.Equal(t, 1.0, p.Settings[model.SettingSFXVolume])
	assert.Equal(t, true, p.Settings[model.SettingShowHints])
	assert.Equal(t, 1.0, p.Settings[model.SettingMasterVolume])
}

func TestDeserializeCoercesLanguageAndName(t *testing.T) {
	data := []byte(`{"id": "profile_1_0001", "name": "", "language": "fr", "created_date": "bad"}`)

	p, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProfileName, p.Name)
	assert.Equal(t, model.DefaultLanguage, p.Language)
	assert.Equal(t, time.Unix(0, 0).UTC(), p.CreatedDate)
}

func TestDeserializeEmptyIDStillReturnsRecord(t *testing.T) {
	data := []byte(`{"id": "", "name": "Alice", "language": "en", "created_date": "2024-01-01T12:00:00"}`)

	p, err := Deserialize(data)
	assert.ErrorIs(t, err, model.ErrValidation)
	require.NotNil(t, p)
	assert.Equal(t, "Alice", p.Name)
}

func TestDeserializeWrongTypedFields(t *testing.T) {
	base := `"id": "profile_1_0001", "created_date": "2024-01-01T12:00:00"`
	tests := []struct {
		name  string
		extra string
		check func(t *testing.T, p *model.Profile)
	}{
		{"numeric avatar", `"name": "Alice", "language": "sv", "avatar": 7`, func(t *testing.T, p *model.Profile) {
			assert.Equal(t, model.AvatarDefault, p.Avatar)
			assert.Equal(t, "Alice", p.Name)
		}},
		{"numeric name", `"name": 42, "language": "sv"`, func(t *testing.T, p *model.Profile) {
			assert.Equal(t, model.DefaultProfileName, p.Name)
			assert.Equal(t, model.LanguageSwedish, p.Language)
		}},
		{"boolean language", `"name": "Alice", "language": true`, func(t *testing.T, p *model.Profile) {
			assert.Equal(t, model.DefaultLanguage, p.Language)
		}},
		{"string settings", `"name": "Alice", "language": "en", "settings": "loud"`, func(t *testing.T, p *model.Profile) {
			assert.Equal(t, model.DefaultSettings(), p.Settings)
		}},
		{"list progress", `"name": "Alice", "language": "en", "progress": [1, 2]`, func(t *testing.T, p *model.Profile) {
			assert.Nil(t, p.Progress)
		}},
		{"numeric timestamps", `"name": "Alice", "language": "en", "last_played": 17`, func(t *testing.T, p *model.Profile) {
			assert.Equal(t, p.CreatedDate, p.LastPlayed)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte("{" + base + ", " + tt.extra + "}")
			require.NoError(t, Validate(data))

			p, err := Deserialize(data)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, model.ProfileID("profile_1_0001"), p.ID)
			tt.check(t, p)

			// the repaired record must survive the store's read-back check
			out, err := Serialize(p)
			require.NoError(t, err)
			assert.NoError(t, Validate(out))
		})
	}
}

func TestDeserializeNumericIDIsReported(t *testing.T) {
	p, err := Deserialize([]byte(`{"id": 5, "name": "Alice", "language": "en", "created_date": "2024-01-01T12:00:00"}`))
	assert.ErrorIs(t, err, model.ErrValidation)
	require.NotNil(t, p)
	assert.Equal(t, "Alice", p.Name)
}

func TestDeserializeRejectsNonObject(t *testing.T) {
	for _, data := range []string{`null`, `[1, 2]`, `"profile"`} {
		p, err := Deserialize([]byte(data))
		assert.ErrorIs(t, err, model.ErrValidation, data)
		assert.Nil(t, p, data)
	}
}

func TestDeserializeMalformed(t *testing.T) {
	p, err := Deserialize([]byte(`{"id": `))
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Nil(t, p)
}

func TestValidate(t *testing.T) {
	valid := map[string]any{
		"id":           "profile_1_0001",
		"name":         "Alice",
		"language":     "en",
		"created_date": "2024-01-01T12:00:00",
	}

	tests := []struct {
		name   string
		mutate func(m map[string]any)
		field  string
	}{
		{"valid", func(m map[string]any) {}, ""},
		{"missing id", func(m map[string]any) { delete(m, "id") }, "id"},
		{"empty name", func(m map[string]any) { m["name"] = "" }, "name"},
		{"null language", func(m map[string]any) { m["language"] = nil }, "language"},
		{"missing created_date", func(m map[string]any) { delete(m, "created_date") }, "created_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := make(map[string]any, len(valid))
			for k, v := range valid {
				m[k] = v
			}
			tt.mutate(m)
			data, err := json.Marshal(m)
			require.NoError(t, err)

			err = Validate(data)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var fe *model.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	assert.ErrorIs(t, Validate([]byte("not json")), model.ErrValidation)
	assert.ErrorIs(t, Validate([]byte("null")), model.ErrValidation)
}

func TestPeekID(t *testing.T) {
	assert.Equal(t, "abc", PeekID([]byte(`{"id":"abc"}`)))
	assert.Equal(t, "", PeekID([]byte(`garbage`)))
}
