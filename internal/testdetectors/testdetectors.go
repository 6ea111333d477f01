// Package testdetectors supplies small example Detector implementations
// used by tests and the cmd/redactor CLI. The individual PHI detectors
// (patterns, dictionaries, NER, OCR) are explicitly out of scope per the
// spec (§1: "deliberately out of scope ... addressed by interface only");
// this package exists only to exercise internal/detect's Registry/
// WorkerPool contract end to end with something concrete.
//
// Grounded on two sources: the regex-confidence idiom in the teacher's
// internal/anonymizer.compilePatterns (expr/piiType/confidence triples,
// Presidio/CHPDA-style confidence banding), and
// other_examples/ArmorClaw's getHIPAAPatterns for the MRN/device-ID/
// biometric pattern shapes the teacher never needed (it anonymizes
// general PII, not clinical PHI).
package testdetectors

import (
	"context"
	"regexp"

	"github.com/DocHatty/vulpes-celare/internal/detect"
	"github.com/DocHatty/vulpes-celare/internal/span"
)

// regexDetector is a minimal Detector backed by one compiled regex, base
// confidence, and fixed priority.
type regexDetector struct {
	name       string
	filterType span.FilterType
	re         *regexp.Regexp
	confidence float64
	priority   int
}

func (d *regexDetector) Name() string              { return d.name }
func (d *regexDetector) FilterType() span.FilterType { return d.filterType }

func (d *regexDetector) Detect(_ context.Context, text string, cfg detect.Config, _ *detect.DetectorContext) ([]*span.Span, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	locs := d.re.FindAllStringIndex(text, -1)
	out := make([]*span.Span, 0, len(locs))
	for _, loc := range locs {
		out = append(out, &span.Span{
			Text:           text[loc[0]:loc[1]],
			CharacterStart: loc[0],
			CharacterEnd:   loc[1],
			FilterType:     d.filterType,
			Confidence:     d.confidence,
			Priority:       d.priority,
			Pattern:        d.name,
		})
	}
	return out, nil
}

// NewName returns a detector for capitalized two-to-three-word person
// names — deliberately broad (spec's whitelist/post-filter stages exist
// precisely to clean up a detector this naive).
func NewName() detect.Detector {
	return &regexDetector{
		name:       "name_regex",
		filterType: span.Name,
		re:         regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,2}\b`),
		confidence: 0.55,
		priority:   40,
	}
}

// NewDate matches common US date formats.
func NewDate() detect.Detector {
	return &regexDetector{
		name:       "date_regex",
		filterType: span.Date,
		re:         regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		confidence: 0.85,
		priority:   70,
	}
}

// NewSSN matches a 9-digit SSN, hyphenated or bare (grounded on the
// teacher's PIISSN pattern).
func NewSSN() detect.Detector {
	return &regexDetector{
		name:       "ssn_regex",
		filterType: span.SSN,
		re:         regexp.MustCompile(`\b(?:\d{3}-\d{2}-\d{4}|\d{9})\b`),
		confidence: 0.85,
		priority:   90,
	}
}

// NewMRN matches a labeled-adjacent 6-10 digit medical record number
// (grounded on ArmorClaw's PHITypeMRN being its own highest-severity
// category — getPHISeverity's "critical" tier).
func NewMRN() detect.Detector {
	return &regexDetector{
		name:       "mrn_regex",
		filterType: span.MRN,
		re:         regexp.MustCompile(`\b(?:MRN|mrn)[\s:#]*([0-9]{6,10})\b`),
		confidence: 0.80,
		priority:   85,
	}
}

// NewPhone matches NANP-style phone numbers (grounded on the teacher's
// broad, low-confidence PIIPhone pattern).
func NewPhone() detect.Detector {
	return &regexDetector{
		name:       "phone_regex",
		filterType: span.Phone,
		re:         regexp.MustCompile(`(\+?1?[\-.\s]?)?\(?([0-9]{3})\)?[\-.\s]?([0-9]{3})[\-.\s]?([0-9]{4})`),
		confidence: 0.65,
		priority:   60,
	}
}

// NewEmail matches RFC-ish email addresses (grounded on the teacher's
// PIIEmail pattern, its highest-confidence entry).
func NewEmail() detect.Detector {
	return &regexDetector{
		name:       "email_regex",
		filterType: span.Email,
		re:         regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`),
		confidence: 0.95,
		priority:   95,
	}
}

// NewZip matches a bare 5-digit (or zip+4) code, the teacher's lowest
// confidence pattern since it collides with countless non-PII numbers.
func NewZip() detect.Detector {
	return &regexDetector{
		name:       "zip_regex",
		filterType: span.Zip,
		re:         regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`),
		confidence: 0.40,
		priority:   20,
	}
}

// NewDeviceID matches a medical-device UDI-like token (grounded on
// ArmorClaw's PHITypeDeviceID).
func NewDeviceID() detect.Detector {
	return &regexDetector{
		name:       "device_id_regex",
		filterType: span.DeviceID,
		re:         regexp.MustCompile(`\b(?:UDI|Device)[\s:#]*([A-Z0-9]{8,20})\b`),
		confidence: 0.75,
		priority:   75,
	}
}

// NewBiometric matches a labeled biometric-identifier token (grounded on
// ArmorClaw's PHITypeBiometric, its other "critical" severity type).
func NewBiometric() detect.Detector {
	return &regexDetector{
		name:       "biometric_regex",
		filterType: span.Biometric,
		re:         regexp.MustCompile(`(?i)\b(?:fingerprint|retina scan|voiceprint)[\s:#]*([A-Za-z0-9\-]{6,})\b`),
		confidence: 0.70,
		priority:   80,
	}
}

// All returns one instance of every example detector, suitable for
// registering against a fresh detect.Registry.
func All() []detect.Detector {
	return []detect.Detector{
		NewName(), NewDate(), NewSSN(), NewMRN(), NewPhone(), NewEmail(), NewZip(), NewDeviceID(), NewBiometric(),
	}
}
