// Package validation checks user input before it reaches the analysis pipeline and
// reports on the consistency of loaded reference data.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/rxscan-api/interfaces"
)

const (
	MaxNameLength   = 100
	MaxNameWords    = 10
	MaxNames        = 50
	MaxTextLength   = 10000
	MaxSpeechLength = 4000
)

// Pre-compiled regex patterns, compiled once at package initialization
var (
	// Drug names: letters of any script, digits, spaces and the punctuation found on labels
	nameRegex = regexp.MustCompile(`^[\p{L}\p{M}\p{N}\s\-\.\+'/(),%]+$`)

	// ISO 639 code with an optional region or script subtag
	languageRegex = regexp.MustCompile(`^[a-z]{2,3}(-[a-z0-9]{2,8})?$`)

	// Dangerous patterns as strings (faster than regex for simple substring matching)
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
		"eval(", "expression(", "url(", "import ", "@import", "binding(", "behavior(",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"update set", "--", "/*", "*/", "xp_", "sp_", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:", "{$expr:",
	}
)

// InputValidatorImpl implements the interfaces.InputValidator interface
type InputValidatorImpl struct{}

// NewInputValidator creates a new input validator
func NewInputValidator() interfaces.InputValidator {
	return &InputValidatorImpl{}
}

// ValidateInput validates a single medication name
func (v *InputValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if utf8.RuneCountInString(input) > MaxNameLength {
		return fmt.Errorf("input too long: maximum %d characters", MaxNameLength)
	}

	// Word count validation to prevent DoS attacks with many short words
	if len(strings.Fields(input)) > MaxNameWords {
		return fmt.Errorf("input too complex: maximum %d words allowed", MaxNameWords)
	}

	if err := checkDangerous(input); err != nil {
		return err
	}

	if !nameRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces and - . + ' / ( ) , %% are allowed")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateLanguage validates an ISO language code such as "en", "fil" or "zh-hans"
func (v *InputValidatorImpl) ValidateLanguage(lang string) error {
	if lang == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if !languageRegex.MatchString(lang) {
		return fmt.Errorf("invalid language code %q", lang)
	}
	return nil
}

// ValidateNameList validates the size of a name list and every non-blank entry.
// Blank entries are allowed; the matcher drops them.
func (v *InputValidatorImpl) ValidateNameList(names []string) error {
	if len(names) > MaxNames {
		return fmt.Errorf("too many names: maximum %d allowed", MaxNames)
	}
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if err := v.ValidateInput(name); err != nil {
			return fmt.Errorf("name %d: %w", i+1, err)
		}
	}
	return nil
}

// ValidateText validates free text submitted for name scanning
func (v *InputValidatorImpl) ValidateText(text string) error {
	if utf8.RuneCountInString(text) > MaxTextLength {
		return fmt.Errorf("text too long: maximum %d characters", MaxTextLength)
	}
	if strings.ContainsRune(text, 0) {
		return fmt.Errorf("text contains invalid characters")
	}
	return nil
}

// ValidateSpeechText validates text sent to speech synthesis
func (v *InputValidatorImpl) ValidateSpeechText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxSpeechLength {
		return fmt.Errorf("text too long: maximum %d characters", MaxSpeechLength)
	}
	if strings.ContainsRune(text, 0) {
		return fmt.Errorf("text contains invalid characters")
	}
	return nil
}

func checkDangerous(input string) error {
	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}
	return nil
}

// hasExcessiveRepetition checks for the same character repeated more than 10 times consecutively
func hasExcessiveRepetition(input string) bool {
	var prev rune
	run := 0
	for _, r := range input {
		if r == prev {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}
