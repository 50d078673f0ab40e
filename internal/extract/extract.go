// Package extract turns auction embeds from a chat export into typed
// sale records.
//
// Embed text is free-form and irregular: markdown decoration, zero-width
// spaces, line breaks inside field values, missing fields. Every
// extraction step tolerates absent input, and nothing raises past
// ExtractSale — a broken embed is logged and skipped whole.
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"bidsage/internal/store"

	"go.uber.org/zap"
)

// soldMarker is the literal tag identifying a finished auction embed.
const soldMarker = "[SOLD]"

// Message is one chat-export message. Embeds stay raw so the original
// payload can be preserved for audit.
type Message struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Embeds    []json.RawMessage `json:"embeds"`
}

// Embed is the subset of an embed object the extractor reads.
type Embed struct {
	Title     string       `json:"title"`
	Timestamp string       `json:"timestamp"`
	Author    EmbedAuthor  `json:"author"`
	Fields    []EmbedField `json:"fields"`
}

// EmbedAuthor names the embed's author (the seller, for auction embeds).
type EmbedAuthor struct {
	Name string `json:"name"`
}

// EmbedField is one name/value block attached to an embed.
type EmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var (
	auctionIDRE   = regexp.MustCompile(`(?i)Auction\s*#\s*(\d+)`)
	levelRE       = regexp.MustCompile(`(?i)Level\s*[:\s]*?(\d{1,3})`)
	shinyRE       = regexp.MustCompile(`(?i)✨|\bshiny\b`)
	totalIVRE     = regexp.MustCompile(`(?i)Total\s*IV[:*\s]*([0-9]+(?:\.[0-9]+)?)\s*%?`)
	winningBidRE  = regexp.MustCompile(`(?i)Winning\s*Bid[^0-9\n\r]*([0-9][0-9,]*)`)
	coinsRE       = regexp.MustCompile(`(?i)([0-9,]+)\s*Pok[eé]coins`)
	winnerIDRE    = regexp.MustCompile("(?i)Winner[:`\\s]*<@!?(\\d+)>")
	winnerNameRE  = regexp.MustCompile(`(?i)(?:Winner|Bidder)[:\s]*@?([^\n\r,]+)`)
	genderRE      = regexp.MustCompile(`(?i)Gender[:\s]*([MFmf♂♀\w]+)`)
	natureRE      = regexp.MustCompile(`(?i)Nature[:\s]*([A-Za-z-]+)`)
	levelStripRE  = regexp.MustCompile(`(?i)Level\s*\d+`)
	titleSplitRE  = regexp.MustCompile(`[-:]`)
	markdownRE    = regexp.MustCompile("[*_`~]")
	nonDigitRE    = regexp.MustCompile(`[^0-9]`)
)

// subIVPatterns maps each sub-attribute to its pattern and setter. The
// patterns tolerate intervening text and line breaks between the
// attribute name and its "IV: n/31" value.
var subIVPatterns = []struct {
	name   string
	re     *regexp.Regexp
	assign func(*store.SaleRecord, int)
}{
	{"hp", subIVPattern(`HP`), func(r *store.SaleRecord, v int) { r.IVHP = &v }},
	{"atk", subIVPattern(`Attack`), func(r *store.SaleRecord, v int) { r.IVAtk = &v }},
	{"def", subIVPattern(`Defense`), func(r *store.SaleRecord, v int) { r.IVDef = &v }},
	{"spatk", subIVPattern(`Sp\.?\s*Atk`), func(r *store.SaleRecord, v int) { r.IVSpAtk = &v }},
	{"spdef", subIVPattern(`Sp\.?\s*Def`), func(r *store.SaleRecord, v int) { r.IVSpDef = &v }},
	{"speed", subIVPattern(`Speed`), func(r *store.SaleRecord, v int) { r.IVSpeed = &v }},
}

func subIVPattern(attr string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)` + attr + `[:\s]*.*?IV[:\s]*([0-9]{1,2})/31`)
}

// Extractor converts raw embed payloads into sale records.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor returns an Extractor logging through l.
func NewExtractor(l *zap.Logger) *Extractor {
	if l == nil {
		l = zap.NewNop()
	}
	return &Extractor{logger: l}
}

// ExtractSale parses one raw embed payload. It returns nil when the
// embed is not a completed sale (title does not start with [SOLD]), has
// no auction id or species, or cannot be parsed at all. No partial
// record is ever returned.
func (e *Extractor) ExtractSale(raw json.RawMessage) (rec *store.SaleRecord) {
	var embed Embed
	if err := json.Unmarshal(raw, &embed); err != nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("embed extraction failed",
				zap.String("title", embed.Title),
				zap.Any("panic", r))
			rec = nil
		}
	}()

	title := embed.Title
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(title)), soldMarker) {
		return nil
	}

	m := auctionIDRE.FindStringSubmatch(title)
	if m == nil {
		return nil
	}

	rec = &store.SaleRecord{
		AuctionID: m[1],
		Title:     title,
		Seller:    embed.Author.Name,
		Timestamp: embed.Timestamp,
		Raw:       string(raw),
	}

	rec.Species = extractSpecies(title)
	if rec.Species == "" {
		return nil
	}

	rec.Shiny = shinyRE.MatchString(title)
	if lm := levelRE.FindStringSubmatch(title); lm != nil {
		if lvl, err := strconv.Atoi(lm[1]); err == nil {
			rec.Level = &lvl
		}
	}

	for _, fld := range embed.Fields {
		name := strings.ToLower(fld.Name)
		value := cleanText(fld.Value)

		if strings.Contains(name, "pokemon") || strings.Contains(name, "pokémon") || strings.Contains(name, "details") {
			extractPokemonDetails(rec, value)
		}
		if strings.Contains(name, "auction") || strings.Contains(name, "details") || strings.Contains(name, "winning") {
			extractWinningDetails(rec, value)
		}
	}

	return rec
}

// extractSpecies pulls the species name out of the title. Titles of the
// form "[SOLD] Auction #123 • Shiny Pikachu Level 42" carry the species
// after the last bullet; otherwise the last hyphen/colon segment is
// used. The "Level N" fragment and shiny decoration are stripped.
func extractSpecies(title string) string {
	var part string
	if idx := strings.LastIndex(title, "•"); idx >= 0 {
		part = title[idx+len("•"):]
	} else {
		segs := titleSplitRE.Split(title, -1)
		part = segs[len(segs)-1]
	}
	part = levelStripRE.ReplaceAllString(part, "")
	part = strings.ReplaceAll(part, "✨", "")
	return strings.TrimSpace(part)
}

// extractPokemonDetails fills total IV, the six sub-IVs, gender and
// nature from one details block. Unmatched fields stay unset; sub-IV
// values outside [0,31] are dropped, not clamped.
func extractPokemonDetails(rec *store.SaleRecord, value string) {
	if m := totalIVRE.FindStringSubmatch(value); m != nil {
		if total, err := strconv.ParseFloat(m[1], 64); err == nil {
			rec.IVTotal = &total
		}
	}

	for _, p := range subIVPatterns {
		m := p.re.FindStringSubmatch(value)
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil || v < 0 || v > 31 {
			continue
		}
		p.assign(rec, v)
	}

	if m := genderRE.FindStringSubmatch(value); m != nil {
		rec.Gender = strings.TrimSpace(m[1])
	}
	if m := natureRE.FindStringSubmatch(value); m != nil {
		rec.Nature = strings.TrimSpace(m[1])
	}
}

// extractWinningDetails fills the winning bid and winner id from one
// auction/winning block.
func extractWinningDetails(rec *store.SaleRecord, value string) {
	if m := winningBidRE.FindStringSubmatch(value); m != nil {
		rec.WinningBid = cleanNumber(m[1])
	} else if m := coinsRE.FindStringSubmatch(value); m != nil {
		rec.WinningBid = cleanNumber(m[1])
	}

	if m := winnerIDRE.FindStringSubmatch(value); m != nil {
		rec.WinnerID = m[1]
	} else if m := winnerNameRE.FindStringSubmatch(value); m != nil {
		rec.WinnerID = strings.TrimSpace(m[1])
	}
}

// cleanNumber strips everything but digits and parses the rest. Returns
// nil for empty or non-positive results.
func cleanNumber(s string) *int64 {
	digits := nonDigitRE.ReplaceAllString(s, "")
	if digits == "" {
		return nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// cleanText removes zero-width spaces and markdown decoration.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u200b", "")
	s = markdownRE.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
