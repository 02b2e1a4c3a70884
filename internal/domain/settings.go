package domain

import (
	"sort"
	"time"
)

// ThemeColor is one of the fixed palette colors
type ThemeColor string

// DefaultThemeColor is used when the stored color is not in the palette
const DefaultThemeColor ThemeColor = "indigo"

// ThemePalette lists the allowed theme colors
var ThemePalette = []ThemeColor{"indigo", "blue", "emerald", "rose", "amber", "violet", "teal", "slate"}

// WidgetSize is the dashboard footprint of a widget
type WidgetSize string

const (
	WidgetSizeSmall  WidgetSize = "sm"
	WidgetSizeMedium WidgetSize = "md"
	WidgetSizeLarge  WidgetSize = "lg"
)

// DefaultWidgetOrder is assigned to widgets with a missing or non-numeric order
const DefaultWidgetOrder = 999

// WidgetConfig places one widget on the dashboard
type WidgetConfig struct {
	ID      string     `json:"id"`
	Enabled bool       `json:"enabled"`
	Order   int        `json:"order"`
	Size    WidgetSize `json:"size"`
}

// UserSettings holds one principal's preferences
type UserSettings struct {
	UserName         string         `json:"userName"`
	ThemeColor       ThemeColor     `json:"themeColor"`
	DarkMode         bool           `json:"darkMode"`
	AutoDarkMode     bool           `json:"autoDarkMode"`
	GoogleSync       bool           `json:"googleSync"`
	WhatsappSync     bool           `json:"whatsappSync"`
	WeatherCity      *string        `json:"weatherCity,omitempty"`
	DashboardWidgets []WidgetConfig `json:"dashboardWidgets"`
	CreatedAt        time.Time      `json:"createdAt,omitempty"`
	UpdatedAt        time.Time      `json:"updatedAt,omitempty"`
}

// SettingsPath returns the document path of a principal's settings
func SettingsPath(uid string) string {
	return JoinPath(UsersCollection, uid, "settings", "app")
}

// DefaultWidgets returns the fixed default dashboard layout
func DefaultWidgets() []WidgetConfig {
	ids := []string{"logbook", "wakeups", "taxis", "lostfound", "weather"}
	widgets := make([]WidgetConfig, len(ids))
	for i, id := range ids {
		widgets[i] = WidgetConfig{ID: id, Enabled: true, Order: i, Size: WidgetSizeMedium}
	}
	return widgets
}

// DefaultSettings returns the preferences written on first access
func DefaultSettings(userName string) UserSettings {
	return UserSettings{
		UserName:         userName,
		ThemeColor:       DefaultThemeColor,
		AutoDarkMode:     true,
		DashboardWidgets: DefaultWidgets(),
	}
}

// SanitizeThemeColor coerces any value outside the palette to the default
func SanitizeThemeColor(value any) ThemeColor {
	s, _ := value.(string)
	for _, c := range ThemePalette {
		if string(c) == s {
			return c
		}
	}
	return DefaultThemeColor
}

// SanitizeWidgets decodes a stored widget list. Items without a non-empty
// string id are dropped; an absent, malformed or empty list yields the defaults.
func SanitizeWidgets(value any) []WidgetConfig {
	var raw []any
	switch t := value.(type) {
	case []any:
		raw = t
	case []WidgetConfig:
		for _, w := range t {
			raw = append(raw, w.document())
		}
	default:
		return DefaultWidgets()
	}

	widgets := make([]WidgetConfig, 0, len(raw))
	for _, item := range raw {
		d := asDocument(item)
		if d == nil {
			continue
		}
		id, ok := d["id"].(string)
		if !ok || id == "" {
			continue
		}
		w := WidgetConfig{
			ID:      id,
			Enabled: boolField(d, "enabled", true),
			Order:   DefaultWidgetOrder,
			Size:    WidgetSizeMedium,
		}
		if n, ok := numberField(d, "order"); ok {
			w.Order = int(n)
		}
		switch size := WidgetSize(stringField(d, "size", "")); size {
		case WidgetSizeSmall, WidgetSizeMedium, WidgetSizeLarge:
			w.Size = size
		}
		widgets = append(widgets, w)
	}

	if len(widgets) == 0 {
		return DefaultWidgets()
	}
	return widgets
}

// SanitizeSettings decodes a stored settings document into a schema-valid
// value. A missing document yields the defaults built from fallbackName.
func SanitizeSettings(snap DocumentSnapshot, fallbackName string) UserSettings {
	if !snap.Exists {
		return DefaultSettings(fallbackName)
	}
	d := snap.Data
	s := UserSettings{
		UserName:         stringField(d, "userName", fallbackName),
		ThemeColor:       SanitizeThemeColor(d["themeColor"]),
		DarkMode:         boolField(d, "darkMode", false),
		AutoDarkMode:     boolField(d, "autoDarkMode", true),
		GoogleSync:       boolField(d, "googleSync", false),
		WhatsappSync:     boolField(d, "whatsappSync", false),
		DashboardWidgets: SanitizeWidgets(d["dashboardWidgets"]),
		CreatedAt:        timeField(d, "createdAt"),
		UpdatedAt:        timeField(d, "updatedAt"),
	}
	if city, ok := d["weatherCity"].(string); ok && city != "" {
		s.WeatherCity = &city
	}
	return s
}

// SortedWidgets returns the widgets in display order
func (s UserSettings) SortedWidgets() []WidgetConfig {
	out := make([]WidgetConfig, len(s.DashboardWidgets))
	copy(out, s.DashboardWidgets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Document returns the full settings document for the bootstrap write
func (s UserSettings) Document() Document {
	d := Document{
		"userName":         s.UserName,
		"themeColor":       string(s.ThemeColor),
		"darkMode":         s.DarkMode,
		"autoDarkMode":     s.AutoDarkMode,
		"googleSync":       s.GoogleSync,
		"whatsappSync":     s.WhatsappSync,
		"dashboardWidgets": widgetsValue(s.DashboardWidgets),
	}
	if s.WeatherCity != nil {
		d["weatherCity"] = *s.WeatherCity
	}
	return d
}

func (w WidgetConfig) document() Document {
	return Document{"id": w.ID, "enabled": w.Enabled, "order": float64(w.Order), "size": string(w.Size)}
}

func widgetsValue(widgets []WidgetConfig) []any {
	out := make([]any, len(widgets))
	for i, w := range widgets {
		out[i] = w.document()
	}
	return out
}

// SettingsPatch is a partial settings update. Only non-nil fields are written.
type SettingsPatch struct {
	UserName         *string        `json:"userName,omitempty"`
	ThemeColor       *string        `json:"themeColor,omitempty"`
	DarkMode         *bool          `json:"darkMode,omitempty"`
	AutoDarkMode     *bool          `json:"autoDarkMode,omitempty"`
	GoogleSync       *bool          `json:"googleSync,omitempty"`
	WhatsappSync     *bool          `json:"whatsappSync,omitempty"`
	WeatherCity      *string        `json:"weatherCity,omitempty"`
	DashboardWidgets []WidgetConfig `json:"dashboardWidgets,omitempty"`
}

// Document returns the merge patch, re-sanitizing the theme color and the
// widget list through the read-path rules
func (p SettingsPatch) Document() Document {
	d := Document{}
	if p.UserName != nil {
		d["userName"] = *p.UserName
	}
	if p.ThemeColor != nil {
		d["themeColor"] = string(SanitizeThemeColor(*p.ThemeColor))
	}
	if p.DarkMode != nil {
		d["darkMode"] = *p.DarkMode
	}
	if p.AutoDarkMode != nil {
		d["autoDarkMode"] = *p.AutoDarkMode
	}
	if p.GoogleSync != nil {
		d["googleSync"] = *p.GoogleSync
	}
	if p.WhatsappSync != nil {
		d["whatsappSync"] = *p.WhatsappSync
	}
	if p.WeatherCity != nil {
		d["weatherCity"] = *p.WeatherCity
	}
	if p.DashboardWidgets != nil {
		d["dashboardWidgets"] = widgetsValue(SanitizeWidgets(p.DashboardWidgets))
	}
	return d
}
