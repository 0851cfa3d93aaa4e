// Package profile builds a behavioral profile from a user's sent mail.
// The profile personalizes the assistant's voice and backs name-to-address
// resolution for outgoing mail.
package profile

import "strings"

// Contact is a known correspondent. Name is stored lower-cased.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Profile summarizes a user's outgoing correspondence. It is built once per
// authentication event and treated as read-only for the session lifetime.
// Absent fields stay at their zero value ("" or empty list).
type Profile struct {
	DisplayName           string    `json:"name,omitempty"`
	Profession            string    `json:"profession,omitempty"`
	PrimaryEmail          string    `json:"email,omitempty"`
	Tone                  string    `json:"tone,omitempty"`
	Signature             string    `json:"signature,omitempty"`
	FrequentContacts      []string  `json:"frequentContacts,omitempty"`
	Coworkers             []string  `json:"coworkers,omitempty"`
	TypicalAvailability   []string  `json:"typicalAvailability,omitempty"`
	Hobbies               []string  `json:"hobbies,omitempty"`
	CommonEmailIntents    []string  `json:"commonEmailIntents,omitempty"`
	Contacts              []Contact `json:"contacts,omitempty"`
	AverageSentenceLength float64   `json:"averageSentenceLength,omitempty"`
	FrequentPhrases       []string  `json:"frequentPhrases,omitempty"`
}

// AddContact appends a contact unless one with the same name or address is
// already present. Names are compared and stored lower-cased.
func (p *Profile) AddContact(name, email string) {
	name = strings.ToLower(strings.TrimSpace(name))
	email = strings.TrimSpace(email)
	if email == "" {
		return
	}

	for _, c := range p.Contacts {
		if c.Name == name || strings.EqualFold(c.Email, email) {
			return
		}
	}

	p.Contacts = append(p.Contacts, Contact{Name: name, Email: email})
}

// FindContact returns the address of the contact with the given name
// (case-insensitive exact match), or "" when absent.
func (p *Profile) FindContact(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range p.Contacts {
		if c.Name == name {
			return c.Email
		}
	}
	return ""
}
