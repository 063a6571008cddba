// Package intake pulls the registration number and the two parties out of the
// text of a dispute filing so a case can be received without retyping them.
package intake

import (
	"regexp"
	"strings"
)

// Result is what Extract found. Empty fields were not found.
type Result struct {
	Number     string `json:"number"`
	Petitioner string `json:"petitioner"`
	Respondent string `json:"respondent"`
}

// Complete reports whether both parties were found.
func (r Result) Complete() bool {
	return r.Petitioner != "" && r.Respondent != ""
}

const roman = `[IVXLCDM]+`

var (
	numberRe = regexp.MustCompile(`(?i)(?:Nomor(?:\s+Registrasi)?\s*[:;]?\s*)` +
		`([0-9]{2,4}\s*/\s*` + roman + `(?:\s*/\s*[A-Z-]+)*\s*/\s*\d{4}|[0-9A-Z/\-]{6,})`)

	petitionerLabel = regexp.MustCompile(`(?mi)^\s*Nama\s+Pemohon\s*:\s*(\S.+)$`)
	respondentLabel = regexp.MustCompile(`(?mi)^\s*Nama\s+Termohon\s*:\s*(\S.+)$`)
	genericName     = regexp.MustCompile(`(?mi)^\s*Nama\s*:\s*(\S.+)$`)

	petitionerMark = regexp.MustCompile(`(?mi)^\s*PEMOHON\s*$`)
	respondentMark = regexp.MustCompile(`(?mi)^\s*TERMOHON\s*$`)
	againstMark    = regexp.MustCompile(`(?mi)^\s*(TERHADAP|MELAWAN)\b`)
	headerMark     = regexp.MustCompile(`(?mi)^\s*(PEMOHON|TERMOHON)\s*:?\s*$`)
	bareLabel      = regexp.MustCompile(`(?i)^\s*Nama(?:\s+(Pemohon|Termohon))?\s*:?\s*$`)

	// representatives and addresses are never the petitioner
	petitionerStop = regexp.MustCompile(`(?i)\b(Kuasa( Hukum)?|Advokat|Pengacara|Lawyer|Paralegal|Selaku|` +
		`yang bertindak untuk dan atas nama|bertindak untuk dan atas nama|` +
		`untuk dan atas nama|Perwakilan|Wali|Alamat|Berkedudukan di)\b`)

	againstNarrative = regexp.MustCompile(`(?is)(?:^|\n)\s*(?:Terhadap|Melawan)\s*:?\s*(.+?)` +
		`(?:\n\s*Selanjutnya\s+disebut\s+sebagai\s+Termohon\b|\n\s*TERMOHON\b|\n\s*PEMOHON\b|\n\n|$)`)
	filedByNarrative = regexp.MustCompile(`(?is)diajukan\s+oleh\s*:?\s*(.+?)(?:\bSelanjutnya\b|\bPemohon\b|\n\n|$)`)

	publicBodyHint = regexp.MustCompile(`(?i)\b(` +
		`PT\s+.*Persero|BUMN|BUMD|Perum|Perseroan|` +
		`Kementerian|Kemen\w+|Direktorat\s+Jenderal|Ditjen|Sekretariat|` +
		`Pemerintah|Pemprov|Pemkot|Pemkab|Provinsi|Kabupaten|Kota|Kecamatan|Kelurahan|` +
		`Komisi|Komisi\s+Informasi|Badan|Dinas|Inspektorat|Bappeda|BPN|BPJS|BPK|BPKP|` +
		`Kejaksaan|Kejari|Kejati|Kepolisian|Polri|TNI|Mahkamah|Pengadilan|` +
		`Universitas|Institut|Politeknik|Sekolah\s+Tinggi|` +
		`RSUD|Rumah\s+Sakit|Puskesmas|PDAM|PLN|Pertamina|Telkom` +
		`)\b`)
	personHint = regexp.MustCompile(`(?i)\b(Dr\.?|Dra\.?|Ir\.?|H\.|Hj\.?|Bapak|Ibu|Sdr\.?|Sdri\.?)\b|` +
		`\b(S\.E\.|S\.H\.|S\.Kom\.?|S\.Si\.?|M\.H\.?|M\.Si\.?)\b`)

	hyphenBreak   = regexp.MustCompile(`(\w)-\n(\w)`)
	blanks        = regexp.MustCompile(`[ \t]+`)
	colon         = regexp.MustCompile(`\s*:\s*`)
	manyNewlines  = regexp.MustCompile(`\n{3,}`)
	leadingLabel  = regexp.MustCompile(`(?i)^\s*Nama(?:\s+(Pemohon|Termohon))?\s*:?\s*`)
	hereinafter   = regexp.MustCompile(`(?is)\bSelanjutnya\s+disebut\s+sebagai\s+.*$`)
	repeatedSpace = regexp.MustCompile(`\s{2,}`)
)

var labelWords = map[string]bool{
	"nama": true, "nama pemohon": true, "nama termohon": true,
	"alamat": true, "jabatan": true, "kuasa": true, "badan publik": true, "kedudukan hukum": true,
	"pemohon": true, "termohon": true,
}

var glyphs = strings.NewReplacer(
	"\u00a0", " ", "\uf0b7", " ", "\u2022", " ", "\u25cf", " ",
	"\uff1a", ":", "\u2013", "-", "\u2014", "-", "\r", "",
)

// Extract reads a filing's text. The respondent must be a public body: a
// value that looks like a person's name is dropped, as is a respondent equal
// to the petitioner.
func Extract(text string) Result {
	text = Normalize(text)
	petitioner, respondent := parties(text)
	return Result{Number: number(text), Petitioner: petitioner, Respondent: respondent}
}

// Normalize joins hyphenated line breaks and evens out spacing and colons.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = glyphs.Replace(s)
	s = hyphenBreak.ReplaceAllString(s, "$1$2")
	s = blanks.ReplaceAllString(s, " ")
	s = colon.ReplaceAllString(s, ": ")
	s = manyNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func number(text string) string {
	m := numberRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	n := strings.Join(strings.Fields(m[1]), "")
	return strings.TrimRight(n, ".;,")
}

func parties(text string) (string, string) {
	petitioner := firstGroup(petitionerLabel, text)
	respondent := firstGroup(respondentLabel, text)

	if petitioner == "" || respondent == "" {
		p, r := scanNamedBlocks(text)
		if petitioner == "" {
			petitioner = p
		}
		if respondent == "" {
			respondent = r
		}
	}

	if petitioner == "" {
		if b := block(text, petitionerMark, againstMark, respondentMark); b != "" {
			petitioner = petitionerLine(b)
		}
	}
	if respondent == "" {
		if b := block(text, respondentMark, petitionerMark, againstMark); b != "" {
			respondent = publicBodyLine(b)
		}
	}

	if respondent == "" {
		if m := againstNarrative.FindStringSubmatch(text); m != nil {
			respondent = publicBodyLine(m[1])
		}
	}
	if petitioner == "" {
		if m := filedByNarrative.FindStringSubmatch(text); m != nil {
			first, _, _ := strings.Cut(m[1], "\n")
			petitioner = clean(first)
		}
	}

	petitioner, respondent = clean(petitioner), clean(respondent)
	if respondent != "" && personHint.MatchString(respondent) {
		respondent = ""
	}
	if petitioner != "" && strings.EqualFold(petitioner, respondent) {
		respondent = ""
	}
	return petitioner, respondent
}

// scanNamedBlocks reads "Nama:" lines only inside PEMOHON / TERMOHON blocks.
func scanNamedBlocks(text string) (string, string) {
	var petitioner, respondent, current string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case petitionerMark.MatchString(line):
			current = "petitioner"
			continue
		case respondentMark.MatchString(line):
			current = "respondent"
			continue
		case current == "":
			continue
		}
		m := genericName.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		val := clean(m[1])
		if val == "" {
			continue
		}
		if current == "petitioner" && petitioner == "" {
			petitioner = val
			continue
		}
		if current == "respondent" && respondent == "" {
			respondent = publicBodyLine(val)
		}
	}
	return clean(petitioner), clean(respondent)
}

// block returns the text after the first start match up to the nearest end match.
func block(text string, start *regexp.Regexp, ends ...*regexp.Regexp) string {
	loc := start.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	from, to := loc[1], len(text)
	for _, end := range ends {
		if e := end.FindStringIndex(text[from:]); e != nil && from+e[0] < to {
			to = from + e[0]
		}
	}
	return strings.TrimSpace(text[from:to])
}

func isLabelOnly(raw, cleaned string) bool {
	return headerMark.MatchString(raw) || labelWords[strings.ToLower(cleaned)] || bareLabel.MatchString(strings.TrimSpace(raw))
}

func firstContentLine(b string) string {
	for _, line := range strings.Split(b, "\n") {
		v := clean(line)
		if v == "" || isLabelOnly(line, v) {
			continue
		}
		return v
	}
	return ""
}

func petitionerLine(b string) string {
	for _, line := range strings.Split(b, "\n") {
		v := clean(line)
		if v == "" || isLabelOnly(line, v) || petitionerStop.MatchString(v) {
			continue
		}
		return v
	}
	return ""
}

// publicBodyLine prefers a line naming an institution, then any line that is
// not a person's name.
func publicBodyLine(snippet string) string {
	lines := strings.Split(snippet, "\n")
	for _, line := range lines {
		if v := clean(line); v != "" && publicBodyHint.MatchString(v) && !personHint.MatchString(v) {
			return v
		}
	}
	for _, line := range lines {
		if v := clean(line); v != "" && !personHint.MatchString(v) {
			return v
		}
	}
	return firstContentLine(snippet)
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return clean(m[1])
}

func clean(v string) string {
	v = strings.Trim(v, " .;,")
	if v == "" {
		return ""
	}
	v = strings.Trim(leadingLabel.ReplaceAllString(v, ""), " .;,")
	v = strings.Trim(hereinafter.ReplaceAllString(v, ""), " .;,")
	return repeatedSpace.ReplaceAllString(v, " ")
}
