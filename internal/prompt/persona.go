package prompt

import (
	"fmt"
	"strings"
)

// Persona is a named response style that constrains the system instruction.
type Persona string

const (
	PersonaFun        Persona = "Fun"
	PersonaTeacher    Persona = "Teacher"
	PersonaTranslator Persona = "Translator"
)

// ParsePersona normalizes user-supplied persona names. Empty input falls back
// to the Teacher persona.
func ParsePersona(raw string) (Persona, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return PersonaTeacher, nil
	case "fun":
		return PersonaFun, nil
	case "teacher":
		return PersonaTeacher, nil
	case "translator":
		return PersonaTranslator, nil
	default:
		return "", fmt.Errorf("unknown persona %q (expected Fun|Teacher|Translator)", raw)
	}
}
