package application

// Translator resolves localized message templates. *i18n.Translator satisfies it.
type Translator interface {
	T(key string, args ...interface{}) string
}
