package i18n

import (
	"fmt"
	"maps"
	"os"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
)

// Language represents a supported language
type Language string

const (
	// Japanese language
	LanguageJapanese Language = "ja"
	// English language
	LanguageEnglish Language = "en"
)

// Translator manages translations for the application
type Translator struct {
	currentLanguage Language
	translations    map[Language]map[string]string
	mu              sync.RWMutex
}

// NewTranslator creates a new translator with default language
func NewTranslator(language Language) *Translator {
	return &Translator{
		currentLanguage: language,
		translations:    make(map[Language]map[string]string),
	}
}

// NewDefault returns a translator preloaded with the built-in catalogs
func NewDefault(language Language) *Translator {
	t := NewTranslator(language)
	t.translations[LanguageEnglish] = DefaultEnglishTranslations()
	t.translations[LanguageJapanese] = DefaultJapaneseTranslations()
	return t
}

// LoadTranslations merges translations from JSON data over what is loaded
func (t *Translator) LoadTranslations(language Language, data []byte) error {
	var translations map[string]string
	if err := sonic.Unmarshal(data, &translations); err != nil {
		return fmt.Errorf("failed to unmarshal translations: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.translations[language] == nil {
		t.translations[language] = make(map[string]string, len(translations))
	}
	maps.Copy(t.translations[language], translations)
	return nil
}

// LoadTranslationsFromFile loads translations from a JSON file
func (t *Translator) LoadTranslationsFromFile(language Language, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read translation file: %w", err)
	}

	return t.LoadTranslations(language, data)
}

// SetLanguage sets the current language
func (t *Translator) SetLanguage(language Language) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentLanguage = language
}

// GetLanguage returns the current language
func (t *Translator) GetLanguage() Language {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentLanguage
}

func (t *Translator) lookup(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if text, ok := t.translations[t.currentLanguage][key]; ok {
		return text, true
	}
	// Fallback to English
	if text, ok := t.translations[LanguageEnglish][key]; ok {
		return text, true
	}
	return "", false
}

// Translate translates a key in the current language.
// Unknown keys are returned unchanged.
func (t *Translator) Translate(key string) string {
	if text, ok := t.lookup(key); ok {
		return text
	}
	return key
}

// TranslateWithFormat translates a key and substitutes {param} placeholders
func (t *Translator) TranslateWithFormat(key string, params map[string]string) string {
	return format(t.Translate(key), params)
}

// TranslateOr is TranslateWithFormat with fallback text for unknown keys
func (t *Translator) TranslateOr(key, fallback string, params map[string]string) string {
	text, ok := t.lookup(key)
	if !ok {
		return fallback
	}
	return format(text, params)
}

func format(text string, params map[string]string) string {
	for param, value := range params {
		text = strings.ReplaceAll(text, "{"+param+"}", value)
	}
	return text
}

// HasTranslation checks if a translation key exists
func (t *Translator) HasTranslation(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.translations[t.currentLanguage][key]
	return ok
}

// ValidateLanguage validates that a language is supported
func ValidateLanguage(language string) bool {
	return language == string(LanguageJapanese) || language == string(LanguageEnglish)
}

// DetectSystemLanguage picks Japanese when the locale environment says so
func DetectSystemLanguage() Language {
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(env); v != "" {
			if strings.HasPrefix(strings.ToLower(v), "ja") {
				return LanguageJapanese
			}
			return LanguageEnglish
		}
	}
	return LanguageEnglish
}

// Resolve maps a config value ("ja", "en" or "" for auto) to a language
func Resolve(language string) Language {
	if ValidateLanguage(language) {
		return Language(language)
	}
	return DetectSystemLanguage()
}

// GetSupportedLanguages returns a list of supported languages
func GetSupportedLanguages() []Language {
	return []Language{LanguageJapanese, LanguageEnglish}
}

// DefaultEnglishTranslations returns default English translations
func DefaultEnglishTranslations() map[string]string {
	return map[string]string{
		// Menu items
		"menu.output":      "Output",
		"menu.input":       "Input",
		"menu.reset":       "Reset to Built-in Devices",
		"menu.silent_mode": "Shortcuts Paused (Silent Mode)",
		"menu.offline":     "offline",
		"menu.no_devices":  "No devices",
		"menu.quit":        "Quit",

		// Notices
		"notice.crash.recovered.title":     "Audio devices reset",
		"notice.crash.recovered.message":   "AudioSwitch did not quit normally last time. Output and input were reset to the built-in devices.",
		"notice.reconnect.started.title":   "Connecting {name}",
		"notice.reconnect.started.message": "Trying to connect {name}...",
		"notice.reconnect.timeout.title":   "Could not connect {name}",
		"notice.reconnect.timeout.message": "Connect {name} manually, then try again.",
		"notice.shortcut.conflict.title":   "Shortcut conflict",
		"notice.shortcut.conflict.message": "A shortcut is already in use. All shortcuts were disabled: {detail}",
		"notice.silent_mode.on.title":      "Silent mode",
		"notice.silent_mode.on.message":    "Shortcuts paused while {name} is frontmost.",
	}
}

// DefaultJapaneseTranslations returns default Japanese translations
func DefaultJapaneseTranslations() map[string]string {
	return map[string]string{
		// Menu items
		"menu.output":      "出力",
		"menu.input":       "入力",
		"menu.reset":       "内蔵デバイスに戻す",
		"menu.silent_mode": "ショートカット停止中（サイレントモード）",
		"menu.offline":     "オフライン",
		"menu.no_devices":  "デバイスがありません",
		"menu.quit":        "終了",

		// Notices
		"notice.crash.recovered.title":     "オーディオデバイスをリセットしました",
		"notice.crash.recovered.message":   "前回 AudioSwitch が正常に終了しませんでした。出力と入力を内蔵デバイスに戻しました。",
		"notice.reconnect.started.title":   "{name} に接続中",
		"notice.reconnect.started.message": "{name} に接続しています...",
		"notice.reconnect.timeout.title":   "{name} に接続できません",
		"notice.reconnect.timeout.message": "{name} を手動で接続してから、もう一度お試しください。",
		"notice.shortcut.conflict.title":   "ショートカットの競合",
		"notice.shortcut.conflict.message": "ショートカットが既に使われているため、すべて無効にしました: {detail}",
		"notice.silent_mode.on.title":      "サイレントモード",
		"notice.silent_mode.on.message":    "{name} が前面にある間はショートカットを停止します。",
	}
}
