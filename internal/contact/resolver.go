// Package contact resolves free-text recipient names to concrete mail
// addresses, preferring the precomputed behavioral profile over a live scan
// of the sent folder.
package contact

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/voxmail/voxmail/internal/gservice"
	"github.com/voxmail/voxmail/internal/profile"
)

// NotFoundError reports a recipient that could not be mapped to an address.
// It names the recipient so the assistant can ask the user to disambiguate.
type NotFoundError struct {
	Recipient string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not resolve recipient %q to an email address", e.Recipient)
}

type sentScanner interface {
	ListSent(ctx context.Context, maxResults int64) ([]gservice.SentEmail, error)
}

type profileSource interface {
	Profile() *profile.Profile
}

const historyScanLimit = 200

// NewResolver creates a resolver reading the session profile from profiles
// and falling back to a bounded sent-history scan through mail.
func NewResolver(profiles profileSource, mail sentScanner) *Resolver {
	return &Resolver{profiles: profiles, mail: mail}
}

// Resolver maps names to addresses. Matching prefers exact over fuzzy and
// profile data over network scans so that mail is never sent to a guessed
// address without a textual match.
type Resolver struct {
	profiles profileSource
	mail     sentScanner
}

// Resolve returns the address for nameOrAddress. Inputs already containing
// "@" pass through unchanged. Returns *NotFoundError when no candidate
// matches.
func (r *Resolver) Resolve(ctx context.Context, nameOrAddress string) (string, error) {
	query := strings.TrimSpace(nameOrAddress)
	if query == "" {
		return "", &NotFoundError{Recipient: nameOrAddress}
	}
	if strings.Contains(query, "@") {
		return query, nil
	}

	lowered := strings.ToLower(query)

	if p := r.profiles.Profile(); p != nil {
		if addr := p.FindContact(lowered); addr != "" {
			return addr, nil
		}
		if addr := partialContactMatch(p.Contacts, lowered); addr != "" {
			return addr, nil
		}
		if addr := frequentContactMatch(p.FrequentContacts, lowered); addr != "" {
			return addr, nil
		}
	}

	addr, err := r.scanSentHistory(ctx, lowered)
	if err != nil {
		log.Warn().Err(err).Str("recipient", query).Msg("sent-history scan failed")
		return "", &NotFoundError{Recipient: query}
	}
	if addr != "" {
		return addr, nil
	}

	return "", &NotFoundError{Recipient: query}
}

// partialContactMatch finds a contact whose stored name contains every
// whitespace token of the query.
func partialContactMatch(contacts []profile.Contact, lowered string) string {
	tokens := strings.Fields(lowered)
	if len(tokens) == 0 {
		return ""
	}

	for _, c := range contacts {
		matched := true
		for _, tok := range tokens {
			if !strings.Contains(c.Name, tok) {
				matched = false
				break
			}
		}
		if matched {
			return c.Email
		}
	}
	return ""
}

// frequentContactMatch finds the first frequent-contact address whose
// local part or domain contains the query.
func frequentContactMatch(addrs []string, lowered string) string {
	for _, addr := range addrs {
		if strings.Contains(strings.ToLower(addr), lowered) {
			return addr
		}
	}
	return ""
}

var addrPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// scanSentHistory counts recipient addresses of recent sent messages that
// contain the query and returns the most frequent one.
func (r *Resolver) scanSentHistory(ctx context.Context, lowered string) (string, error) {
	sent, err := r.mail.ListSent(ctx, historyScanLimit)
	if err != nil {
		return "", fmt.Errorf("mail.ListSent failed: %w", err)
	}

	counts := map[string]int{}
	for _, msg := range sent {
		for _, entry := range msg.To {
			addr := strings.ToLower(addrPattern.FindString(entry))
			if addr == "" {
				continue
			}
			if strings.Contains(addr, lowered) {
				counts[addr]++
			}
		}
	}

	if len(counts) == 0 {
		return "", nil
	}

	candidates := make([]string, 0, len(counts))
	for addr := range counts {
		candidates = append(candidates, addr)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if counts[candidates[i]] != counts[candidates[j]] {
			return counts[candidates[i]] > counts[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})

	return candidates[0], nil
}
