package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SystemPrompt is the system role text for backends that accept one.
const SystemPrompt = "You are a professional Minecraft mod translator."

const userPromptTemplate = `You are a professional Minecraft mod translator. Translate the following strings to %s.

CRITICAL RULES - DO NOT TRANSLATE:
1. MOD IDs (e.g., "examplemod", "my_mod", lowercase with underscores)
2. Mod Names when used as identifiers
3. Java package names (e.g., "com.example.mod")
4. Mixin addresses and class paths
5. Technical constants, variable names, method names
6. Resource locations (format: namespace:path)
7. File paths and extensions
8. Code syntax elements ($, @, brackets, etc.)
9. NBT tags and data structure keys
10. Registry names and identifiers

ONLY TRANSLATE:
- User-facing text (GUI labels, buttons, tooltips)
- In-game messages and descriptions
- Item/block display names (when clearly user-facing)
- Help text and instructions

OTHER RULES:
- Keep color codes like §a, §c, etc.
- Preserve placeholders like %%s, %%d, {0}, etc.
- Maintain JSON format exactly
- If unsure whether to translate, DON'T translate it

Input strings (JSON array):
%s

Output only the translated JSON array, nothing else.`

// BuildPrompt renders the translation prompt for texts.
func BuildPrompt(texts []string, targetLang string) (Prompt, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(texts); err != nil {
		return Prompt{}, fmt.Errorf("encode prompt texts: %w", err)
	}
	return Prompt{
		System: SystemPrompt,
		User:   fmt.Sprintf(userPromptTemplate, LanguageName(targetLang), strings.TrimRight(buf.String(), "\n")),
	}, nil
}

// ParseArray extracts the JSON array from a model reply. Code fences are
// stripped and any text around the outermost brackets is ignored. Elements
// that are not strings come back as nil.
func ParseArray(content string) ([]*string, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("llm response has no JSON array")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("llm response parse: %w", err)
	}
	out := make([]*string, len(raw))
	for i, item := range raw {
		var v string
		if err := json.Unmarshal(item, &v); err == nil {
			out[i] = &v
		}
	}
	return out, nil
}
