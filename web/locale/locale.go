// Package locale loads the TOML translations and resolves user-facing
// messages for the request's language.
package locale

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/recipebox/recipebox/logger"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

const contextKey = "localizer"

var (
	i18nBundle *i18n.Bundle
	defaultLoc *i18n.Localizer
)

// InitLocalizer parses every translation file under the "translation"
// directory of i18nFS. English is the fallback language.
func InitLocalizer(i18nFS fs.FS) error {
	bundle := i18n.NewBundle(language.MustParse("en-US"))
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	err := fs.WalkDir(i18nFS, "translation", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(i18nFS, path)
		if err != nil {
			return err
		}
		_, err = bundle.ParseMessageFileBytes(data, path)
		return err
	})
	if err != nil {
		return err
	}

	i18nBundle = bundle
	defaultLoc = i18n.NewLocalizer(bundle)
	return nil
}

// createTemplateData turns "key==value" params into translation template data.
func createTemplateData(params []string) map[string]any {
	templateData := make(map[string]any)
	for _, param := range params {
		parts := strings.SplitN(param, "==", 2)
		if len(parts) == 2 {
			templateData[parts[0]] = parts[1]
		}
	}
	return templateData
}

// Translate localizes key with the given localizer, falling back to English
// and finally to the key itself.
func Translate(localizer *i18n.Localizer, key string, params ...string) string {
	if localizer == nil {
		localizer = defaultLoc
	}
	if localizer == nil {
		return key
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: createTemplateData(params),
	})
	if err != nil {
		// a message missing from the matched language comes back in English
		var notFound *i18n.MessageNotFoundErr
		if errors.As(err, &notFound) && msg != "" {
			logger.Debugf("Message %q falls back to the default language: %v", key, err)
			return msg
		}
		logger.Warningf("Failed to localize message %q: %v", key, err)
		return key
	}
	return msg
}

// ForLanguage returns a localizer for a "lang" cookie value or Accept-Language header.
func ForLanguage(langs ...string) *i18n.Localizer {
	if i18nBundle == nil {
		return nil
	}
	return i18n.NewLocalizer(i18nBundle, langs...)
}

// LocalizerMiddleware picks the request language from the "lang" cookie or
// the Accept-Language header.
func LocalizerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var lang string
		if cookie, err := c.Request.Cookie("lang"); err == nil {
			lang = cookie.Value
		} else {
			lang = c.GetHeader("Accept-Language")
		}
		c.Set("lang", lang)
		c.Set(contextKey, ForLanguage(lang))
		c.Next()
	}
}

// I18n translates key for the request's language.
func I18n(c *gin.Context, key string, params ...string) string {
	var localizer *i18n.Localizer
	if v, ok := c.Get(contextKey); ok {
		localizer, _ = v.(*i18n.Localizer)
	}
	return Translate(localizer, key, params...)
}
