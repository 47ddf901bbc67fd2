package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/handiism/playlist-album/internal/download"
	"github.com/handiism/playlist-album/internal/model"
)

type askFunc func(p survey.Prompt, response any, opts ...survey.AskOpt) error

// prompter asks the album questions with survey. When the answers are
// accepted up front, or stdin is not a terminal, nothing is asked and every
// question keeps its default.
type prompter struct {
	ask  askFunc
	opts []survey.AskOpt
	skip bool
}

func newPrompter(in io.Reader, out io.Writer, acceptDefaults bool) *prompter {
	p := &prompter{ask: survey.AskOne, skip: acceptDefaults}

	fin, inOK := in.(terminal.FileReader)
	fout, outOK := out.(terminal.FileWriter)
	if !inOK || !outOK || !isTerminal(in) {
		p.skip = true
		return p
	}
	p.opts = []survey.AskOpt{survey.WithStdio(fin, fout, fout)}
	return p
}

func (p *prompter) askOne(prompt survey.Prompt, response any, opts ...survey.AskOpt) error {
	err := p.ask(prompt, response, append(slices.Clone(p.opts), opts...)...)
	if errors.Is(err, terminal.InterruptErr) {
		return context.Canceled
	}
	return err
}

// text returns the answer; an empty answer yields def.
func (p *prompter) text(label, def string) (string, error) {
	if p.skip {
		return def, nil
	}
	var answer string
	err := p.askOne(&survey.Input{Message: label, Default: def}, &answer)
	return strings.TrimSpace(answer), err
}

func (p *prompter) required(label string) (string, error) {
	if p.skip {
		return "", nil
	}
	var answer string
	err := p.askOne(&survey.Input{Message: label}, &answer, survey.WithValidator(survey.Required))
	return strings.TrimSpace(answer), err
}

func (p *prompter) year(label, def string) (string, error) {
	if p.skip {
		return def, nil
	}
	var answer string
	err := p.askOne(&survey.Input{Message: label, Default: def}, &answer, survey.WithValidator(validateYear))
	return strings.TrimSpace(answer), err
}

func validateYear(ans any) error {
	s, _ := ans.(string)
	s = strings.TrimSpace(s)
	if s != "" && !model.IsYear(s) {
		return fmt.Errorf("%q is not a 4-digit year", s)
	}
	return nil
}

func validateImageURL(ans any) error {
	s, _ := ans.(string)
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return errors.New("enter an http(s) image URL")
	}
	return nil
}

const (
	doneOption = "Done, keep these titles"
	urlOption  = "Image URL..."
)

// renames offers the track list until Done is picked. titles is updated in
// place so the list shows earlier renames.
func (p *prompter) renames(titles []string) (map[int]string, error) {
	if p.skip {
		return nil, nil
	}

	var renames map[int]string
	for {
		choice := 0
		prompt := &survey.Select{
			Message:  "Rename a track:",
			Options:  append([]string{doneOption}, numbered(titles)...),
			PageSize: 15,
		}
		if err := p.askOne(prompt, &choice); err != nil {
			return renames, err
		}
		if choice == 0 {
			return renames, nil
		}

		old := titles[choice-1]
		title, err := p.text(fmt.Sprintf("New title for track %d:", choice), old)
		if err != nil {
			return renames, err
		}
		if title == "" || title == old {
			continue
		}
		if renames == nil {
			renames = make(map[int]string)
		}
		renames[choice] = title
		titles[choice-1] = title
	}
}

// cover offers every track's thumbnail plus a custom URL.
func (p *prompter) cover(titles []string) (download.CoverChoice, error) {
	if p.skip {
		return download.CoverChoice{TrackIndex: 1}, nil
	}

	choice := 0
	prompt := &survey.Select{
		Message:  "Cover source:",
		Options:  append(numbered(titles), urlOption),
		PageSize: 15,
	}
	if err := p.askOne(prompt, &choice); err != nil {
		return download.CoverChoice{}, err
	}
	if choice < len(titles) {
		return download.CoverChoice{TrackIndex: choice + 1}, nil
	}

	var url string
	if err := p.askOne(&survey.Input{Message: "Image URL:"}, &url, survey.WithValidator(validateImageURL)); err != nil {
		return download.CoverChoice{}, err
	}
	return download.ParseCoverChoice(url), nil
}

func numbered(titles []string) []string {
	out := make([]string, len(titles))
	for i, t := range titles {
		out[i] = fmt.Sprintf("%2d. %s", i+1, t)
	}
	return out
}
