package ui

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/manifoldco/promptui"
)

var (
	ErrEmptyURL   = errors.New("URL cannot be empty")
	ErrCJKInURL   = errors.New("URL contains CJK characters; enter the plain address")
	ErrPromptEcho = errors.New("enter only the address, not the prompt text")
	ErrNoHost     = errors.New("URL has no host")
)

// NormalizeStartURL validates a chapter URL typed by a person and adds
// https:// when no scheme is given.
func NormalizeStartURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyURL
	}
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return "", ErrCJKInURL
		}
	}
	if strings.Contains(s, "URL") || strings.Contains(s, "Enter") {
		return "", ErrPromptEcho
	}

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Host == "" {
		return "", ErrNoHost
	}
	return s, nil
}

// PromptStartURL asks for the first chapter URL until a valid one is given
// or the prompt is cancelled.
func PromptStartURL() (string, error) {
	p := promptui.Prompt{
		Label: "First chapter URL",
		Validate: func(in string) error {
			_, err := NormalizeStartURL(in)
			return err
		},
	}
	in, err := p.Run()
	if err != nil {
		return "", err
	}
	return NormalizeStartURL(in)
}

// PromptChapterCap asks for the chapter cap; an empty answer keeps def.
func PromptChapterCap(def int) (int, error) {
	p := promptui.Prompt{
		Label:   "Maximum chapters",
		Default: strconv.Itoa(def),
		Validate: func(in string) error {
			_, err := parseCap(in, def)
			return err
		},
	}
	in, err := p.Run()
	if err != nil {
		return 0, err
	}
	return parseCap(in, def)
}

func parseCap(in string, def int) (int, error) {
	in = strings.TrimSpace(in)
	if in == "" {
		return def, nil
	}
	n, err := strconv.Atoi(in)
	if err != nil || n < 1 {
		return 0, errors.New("enter a whole number of at least 1")
	}
	return n, nil
}
