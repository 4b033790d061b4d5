package rule

import (
	"errors"
	"fmt"
)

// ValidateDefinition compiles everything a rule carries and reports the
// first failure. Semantic rules only need a non-empty pattern.
func ValidateDefinition(ruleType, pattern, filePattern, condition string) error {
	if pattern == "" {
		return errors.New("pattern must not be empty")
	}
	if ruleType != TypeSemantic {
		if _, err := Compile(ruleType, pattern); err != nil {
			return err
		}
	}
	if filePattern != "" {
		if _, err := CompileGlob(filePattern); err != nil {
			return fmt.Errorf("file_pattern: %w", err)
		}
	}
	if condition != "" {
		env, err := NewConditionEnv()
		if err != nil {
			return err
		}
		if _, err := env.Compile(condition); err != nil {
			return fmt.Errorf("condition: %w", err)
		}
	}
	return nil
}
