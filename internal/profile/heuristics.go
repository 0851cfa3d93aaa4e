package profile

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	formalMarkers   = []string{"regards", "sincerely"}
	friendlyMarkers = []string{"hey", "hi", "thanks", "!"}

	signaturePattern = regexp.MustCompile(`(?is)(?:\n|^)(best|thanks|regards)[\s,-]*\n`)
	addressPattern   = regexp.MustCompile(`<([^<>@\s]+@[^<>\s]+)>`)
	bigramToken      = regexp.MustCompile(`[a-z']+`)
)

func detectTone(samples []string) string {
	var formal, friendly int
	for _, s := range samples {
		lower := strings.ToLower(s)
		for _, w := range formalMarkers {
			if strings.Contains(lower, w) {
				formal++
				break
			}
		}
		for _, w := range friendlyMarkers {
			if strings.Contains(lower, w) {
				friendly++
				break
			}
		}
	}

	switch {
	case formal > friendly:
		return "formal"
	case friendly > formal:
		return "friendly and casual"
	default:
		return "neutral"
	}
}

// extractSignature returns the trailing sign-off block of a message body,
// recognized by a best/thanks/regards line near the end.
func extractSignature(text string) string {
	loc := signaturePattern.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	tail := strings.TrimSpace(text[loc[0]:])
	if len(tail) > 240 {
		return ""
	}

	return tail
}

func averageSentenceLength(texts []string) float64 {
	var words, sentences int

	for _, t := range texts {
		for _, s := range splitSentences(t) {
			sentences++
			words += len(strings.Fields(s))
		}
	}

	if sentences == 0 {
		return 0
	}

	return math.Round(float64(words)/float64(sentences)*10) / 10
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// topBigrams returns the n most frequent adjacent word pairs across texts,
// most frequent first.
func topBigrams(texts []string, n int) []string {
	counts := map[string]int{}

	for _, t := range texts {
		tokens := bigramToken.FindAllString(strings.ToLower(t), -1)
		for i := 0; i+1 < len(tokens); i++ {
			counts[tokens[i]+" "+tokens[i+1]]++
		}
	}

	type pair struct {
		phrase string
		count  int
	}
	pairs := make([]pair, 0, len(counts))
	for phrase, count := range counts {
		if count > 1 {
			pairs = append(pairs, pair{phrase, count})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].phrase < pairs[j].phrase
	})

	if len(pairs) > n {
		pairs = pairs[:n]
	}

	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.phrase)
	}
	return out
}

// parseRecipient splits a raw "Display Name <addr@host>" header value into
// name and address. A bare address yields an empty name.
func parseRecipient(raw string) (name, email string) {
	raw = strings.TrimSpace(raw)

	if m := addressPattern.FindStringSubmatch(raw); m != nil {
		name = strings.Trim(strings.TrimSpace(raw[:strings.Index(raw, "<")]), `"`)
		return name, m[1]
	}

	if strings.Contains(raw, "@") {
		return "", raw
	}

	return "", ""
}

// harvestRecipients fills contact-shaped fields from sent-mail headers:
// frequent contacts ordered by recipient count, coworkers sharing the
// sender's domain, and the named contacts table.
func harvestRecipients(p *Profile, sent []SentMessage) {
	counts := map[string]int{}
	order := []string{}

	var ownDomain string
	for _, msg := range sent {
		if _, addr := parseRecipient(msg.From); addr != "" {
			if p.PrimaryEmail == "" {
				p.PrimaryEmail = addr
			}
			if idx := strings.LastIndex(addr, "@"); idx != -1 {
				ownDomain = strings.ToLower(addr[idx+1:])
			}
			break
		}
	}

	for _, msg := range sent {
		for _, raw := range msg.To {
			name, addr := parseRecipient(raw)
			if addr == "" {
				continue
			}
			addr = strings.ToLower(addr)
			if addr == strings.ToLower(p.PrimaryEmail) {
				continue
			}
			if counts[addr] == 0 {
				order = append(order, addr)
			}
			counts[addr]++
			if name != "" {
				p.AddContact(name, addr)
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	p.FrequentContacts = order
	for _, addr := range order {
		if ownDomain != "" && strings.HasSuffix(addr, "@"+ownDomain) {
			p.Coworkers = append(p.Coworkers, addr)
		}
	}
}
