// Package textnorm holds the two text normalization strengths: a light
// display cleanup and the aggressive folding whose output feeds the
// similarity model and is never shown to a user.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	manyDotsRe = regexp.MustCompile(`\.{3,}`)
	bulletsRe  = regexp.MustCompile(`[•·▪◦●○∙]`)

	// Protect HH:MM before numbers and punctuation are folded, so clock
	// times don't collapse into plain numbers.
	timeRe = regexp.MustCompile(`\b(?:[01]?\d|2[0-3]):[0-5]\d\b`)
	numRe  = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

	// Niqqud and cantillation marks.
	niqqudRe = regexp.MustCompile(`[\x{0591}-\x{05BD}\x{05BF}\x{05C1}-\x{05C7}]`)
	dashesRe = regexp.MustCompile(`[‐‑‒–—―−-]`)
	// Keep letters, digits, Hebrew and the <time>/<num> token delimiters.
	punctRe = regexp.MustCompile(`[^0-9a-z\x{0590}-\x{05FF}<> ]+`)

	bidiReplacer  = strings.NewReplacer("‏", " ", "‎", " ", "‍", " ", "​", " ")
	quoteReplacer = strings.NewReplacer("“", " ", "”", " ", "„", " ", "״", " ", "’", " ", "‘", " ", "׳", " ", `"`, " ", "'", " ")
)

// Display lightly cleans a title or summary for human consumption:
// canonical composition, whitespace collapse, run-of-dots to a single
// ellipsis, bullets stripped. Case and punctuation survive.
func Display(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = spaceRe.ReplaceAllString(s, " ")
	s = manyDotsRe.ReplaceAllString(s, "…")
	s = bulletsRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Normalizer performs the aggressive clustering fold. The CTA prefixes and
// site suffixes are configured per deployment, so the regexes are built
// once up front.
type Normalizer struct {
	ctaRe    *regexp.Regexp
	suffixRe *regexp.Regexp
}

type Config struct {
	CTAPrefixes  []string
	SiteSuffixes []string
}

func New(cfg Config) *Normalizer {
	n := &Normalizer{}
	if alts := quoteAlternatives(cfg.CTAPrefixes); alts != "" {
		n.ctaRe = regexp.MustCompile(`(?i)^(?:` + alts + `)\s*:?\s+`)
	}
	if alts := quoteAlternatives(cfg.SiteSuffixes); alts != "" {
		n.suffixRe = regexp.MustCompile(`(?i)\s*(?:\||[-–—])\s*(?:` + alts + `)\s*$`)
	}
	return n
}

// Cluster folds text into the similarity-model form: compatibility
// composition, control and decoration stripped, CTA lead-ins and outlet
// suffixes removed, clock times and numbers replaced with placeholder
// tokens, niqqud dropped, dashes to spaces, remaining punctuation gone.
func (n *Normalizer) Cluster(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = bidiReplacer.Replace(s)
	s = strings.ReplaceAll(s, "…", "...")
	s = bulletsRe.ReplaceAllString(s, " ")

	if n.ctaRe != nil {
		s = n.ctaRe.ReplaceAllString(s, "")
	}
	if n.suffixRe != nil {
		s = n.suffixRe.ReplaceAllString(s, "")
	}

	s = timeRe.ReplaceAllString(s, " <time> ")
	s = strings.ToLower(s)
	s = numRe.ReplaceAllString(s, " <num> ")
	s = niqqudRe.ReplaceAllString(s, "")
	// Dash variants become spaces so תל-אביב and תל אביב agree.
	s = dashesRe.ReplaceAllString(s, " ")
	s = quoteReplacer.Replace(s)
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func quoteAlternatives(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(v))
	}
	return strings.Join(quoted, "|")
}
