package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

const dateLayout = "2006-01-02"

const (
	keyApplicationSubject = "application_warning.subject"
	keyApplicationBody    = "application_warning.body"
	keyAccountSubject     = "account_warning.subject"
	keyAccountBody        = "account_warning.body"
)

var supported = []language.Tag{language.English, language.German}

var matcher = language.NewMatcher(supported)

var messages = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	set(language.English, keyApplicationSubject, "Your application data will be deleted on %s")
	set(language.English, keyApplicationBody, "Hello %s,\n\n"+
		"your application %s has been closed for some time. In line with our data retention policy, "+
		"the personal data it contains will be deleted on %s.\n\n"+
		"No action is required. If you apply again, a new application is created.\n")
	set(language.English, keyAccountSubject, "Your account will be deleted on %s")
	set(language.English, keyAccountBody, "Hello %s,\n\n"+
		"your account has not been used for a long time. In line with our data retention policy, "+
		"it will be deleted on %s.\n\n"+
		"Sign in before that date to keep your account.\n")

	set(language.German, keyApplicationSubject, "Ihre Bewerbungsdaten werden am %s gelöscht")
	set(language.German, keyApplicationBody, "Hallo %s,\n\n"+
		"Ihre Bewerbung %s ist seit einiger Zeit abgeschlossen. Gemäß unserer Richtlinie zur Datenaufbewahrung "+
		"werden die darin enthaltenen personenbezogenen Daten am %s gelöscht.\n\n"+
		"Sie müssen nichts tun. Wenn Sie sich erneut bewerben, wird eine neue Bewerbung angelegt.\n")
	set(language.German, keyAccountSubject, "Ihr Konto wird am %s gelöscht")
	set(language.German, keyAccountBody, "Hallo %s,\n\n"+
		"Ihr Konto wurde lange nicht verwendet. Gemäß unserer Richtlinie zur Datenaufbewahrung "+
		"wird es am %s gelöscht.\n\n"+
		"Melden Sie sich vor diesem Datum an, um Ihr Konto zu behalten.\n")

	return b
}

// MatchLanguage returns the supported language closest to lang, or
// fallback when lang is empty or unparsable.
func MatchLanguage(lang, fallback string) language.Tag {
	if lang == "" {
		lang = fallback
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag, err = language.Parse(fallback)
		if err != nil {
			return language.English
		}
	}
	_, idx, _ := matcher.Match(tag)
	return supported[idx]
}

// Render produces the localized subject and body of n.
func Render(n Notification) Message {
	p := message.NewPrinter(MatchLanguage(n.Language, "en"), message.Catalog(messages))
	date := n.DeletionDate.UTC().Format(dateLayout)
	name := n.Recipient.Name
	if name == "" {
		name = n.Recipient.Email
	}

	switch n.Type {
	case TypeApplicationDeletionWarning:
		return Message{
			Subject: p.Sprintf(keyApplicationSubject, date),
			Body:    p.Sprintf(keyApplicationBody, name, n.SubjectID, date),
		}
	default:
		return Message{
			Subject: p.Sprintf(keyAccountSubject, date),
			Body:    p.Sprintf(keyAccountBody, name, date),
		}
	}
}
