package adapters

import (
	"regexp"
	"strings"

	"github.com/concertradar-data/pkg/concert"
)

// instrumentRoles maps the role words found next to performer names on
// venue pages onto the normalized role set.
var instrumentRoles = map[string]concert.Role{
	"conductor":     concert.RoleConductor,
	"dyrygent":      concert.RoleConductor,
	"orchestra":     concert.RoleOrchestra,
	"orkiestra":     concert.RoleOrchestra,
	"philharmonic":  concert.RoleOrchestra,
	"ensemble":      concert.RoleOrchestra,
	"quartet":       concert.RoleOrchestra,
	"kwartet":       concert.RoleOrchestra,
	"choir":         concert.RoleChoir,
	"chorus":        concert.RoleChoir,
	"chór":          concert.RoleChoir,
	"piano":         concert.RoleSoloist,
	"fortepian":     concert.RoleSoloist,
	"violin":        concert.RoleSoloist,
	"skrzypce":      concert.RoleSoloist,
	"cello":         concert.RoleSoloist,
	"wiolonczela":   concert.RoleSoloist,
	"viola":         concert.RoleSoloist,
	"flute":         concert.RoleSoloist,
	"flet":          concert.RoleSoloist,
	"clarinet":      concert.RoleSoloist,
	"oboe":          concert.RoleSoloist,
	"bassoon":       concert.RoleSoloist,
	"trumpet":       concert.RoleSoloist,
	"horn":          concert.RoleSoloist,
	"trombone":      concert.RoleSoloist,
	"harp":          concert.RoleSoloist,
	"organ":         concert.RoleSoloist,
	"harpsichord":   concert.RoleSoloist,
	"guitar":        concert.RoleSoloist,
	"soprano":       concert.RoleSoloist,
	"mezzo-soprano": concert.RoleSoloist,
	"alto":          concert.RoleSoloist,
	"tenor":         concert.RoleSoloist,
	"baritone":      concert.RoleSoloist,
	"bass":          concert.RoleSoloist,
	"soloist":       concert.RoleSoloist,
	"pianist":       concert.RoleSoloist,
	"violinist":     concert.RoleSoloist,
	"cellist":       concert.RoleSoloist,
}

// composers is the detection list for program extraction.
var composers = []string{
	"Mozart", "Beethoven", "Bach", "Tchaikovsky", "Brahms", "Chopin", "Debussy",
	"Ravel", "Rachmaninoff", "Stravinsky", "Schubert", "Handel", "Haydn", "Liszt",
	"Mahler", "Mendelssohn", "Prokofiev", "Puccini", "Shostakovich", "Sibelius",
	"Schumann", "Verdi", "Wagner", "Vivaldi", "Dvořák", "Grieg", "Berlioz",
	"Britten", "Bartók", "Bruckner", "Elgar", "Fauré", "Gershwin", "Glass",
	"Holst", "Ligeti", "Monteverdi", "Mussorgsky", "Pärt", "Purcell", "Reich",
	"Rimsky-Korsakov", "Saint-Saëns", "Satie", "Schoenberg", "Tallis",
	"Vaughan Williams", "Bernstein", "Copland", "Barber", "Szymanowski",
	"Moniuszko", "Wieniawski", "Lutosławski", "Penderecki", "Górecki", "Kilar",
}

// pieceKeywords mark work titles like "Symphony No. 4 in E minor".
var pieceKeywords = []string{
	"symphony", "concerto", "sonata", "quartet", "quintet", "trio", "etude",
	"nocturne", "rhapsody", "suite", "prelude", "fugue", "variations", "ballet",
	"opera", "mass", "requiem", "cantata", "oratorio", "overture",
}

// RoleFor normalizes a raw role or instrument word.
func RoleFor(raw string) concert.Role {
	if role, ok := instrumentRoles[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return role
	}
	return concert.RoleOther
}

// roleFromText classifies a whole line, like an ensemble name, by looking
// for any known role word inside it.
func roleFromText(text string) concert.Role {
	lower := strings.ToLower(text)
	for word, role := range instrumentRoles {
		if strings.Contains(lower, word) {
			return role
		}
	}
	return concert.RoleOther
}

var namePattern = regexp.MustCompile(`[A-Z][a-zà-žÀ-Žżźćńółęąś]+(?:\s+[A-Z][a-zà-žÀ-Žżźćńółęąś\-]+){1,3}`)

// extractPerformers scans free text for "role: name" pairs and falls back to
// capitalized names near role words.
func extractPerformers(text string) []concert.Performer {
	var performers []concert.Performer
	seen := make(map[string]struct{})

	add := func(name string, role concert.Role) {
		name = strings.TrimSpace(name)
		if len(name) < 3 {
			return
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			return
		}
		seen[strings.ToLower(name)] = struct{}{}
		performers = append(performers, concert.Performer{Name: name, Role: role})
	}

	for word, role := range instrumentRoles {
		pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(word) + `\s*[:\-–]\s*([\p{L}][\p{L}\s\-']+)`)
		if err != nil {
			continue
		}
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[1])
			if idx := strings.IndexAny(name, ",.;\n"); idx >= 0 {
				name = name[:idx]
			}
			add(name, role)
		}
	}

	if len(performers) > 0 {
		return performers
	}

	// No labelled pairs, look for capitalized names near role words.
	lower := strings.ToLower(text)
	for word, role := range instrumentRoles {
		idx := strings.Index(lower, word)
		if idx < 0 {
			continue
		}
		lo := idx - 40
		if lo < 0 {
			lo = 0
		}
		hi := idx + len(word) + 40
		if hi > len(text) {
			hi = len(text)
		}
		for _, name := range namePattern.FindAllString(text[lo:hi], -1) {
			if isVenueNoise(name) {
				continue
			}
			add(name, role)
		}
	}
	return performers
}

// extractProgram scans free text for known composers and piece keywords.
func extractProgram(text string) []concert.ProgramEntry {
	var entries []concert.ProgramEntry
	seen := make(map[string]struct{})

	add := func(composer, work string) {
		key := composer + "|" + work
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		entries = append(entries, concert.ProgramEntry{
			Composer: composer,
			Work:     work,
			Position: len(entries),
		})
	}

	for _, composer := range composers {
		idx := strings.Index(text, composer)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(composer):]
		if m := regexp.MustCompile(`^\s*[:\-–]\s*([^\n,.;]+)`).FindStringSubmatch(rest); m != nil {
			work := strings.TrimSpace(m[1])
			if len(work) > 2 {
				add(composer, work)
				continue
			}
		}
		add(composer, "Work")
	}

	if len(entries) > 0 {
		return entries
	}

	lower := strings.ToLower(text)
	for _, keyword := range pieceKeywords {
		if !strings.Contains(lower, keyword) {
			continue
		}
		pattern := regexp.MustCompile(`(?i)(` + keyword + `\s*(?:No\.?\s*\d+)?(?:\s+in\s+[A-G](?:\s*(?:flat|sharp))?\s*(?:major|minor))?)`)
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			work := strings.TrimSpace(m[1])
			if len(work) > len(keyword) {
				add("Unknown", work)
			}
		}
	}
	return entries
}

var noiseWords = []string{
	"concert", "symphony", "orchestra", "hall", "center", "theatre",
	"music", "program", "season", "series", "performance",
}

func isVenueNoise(name string) bool {
	lower := strings.ToLower(name)
	for _, word := range noiseWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
