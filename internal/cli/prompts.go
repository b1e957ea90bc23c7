package cli

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/CortexCommittee/internal/models"
)

var (
	tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)
	regions       = []string{"US", "CN", "HK", "EU", "GLOBAL"}
)

// promptRequest fills the analyze flags interactively. Values already set are offered as defaults.
func promptRequest(f *analyzeFlags) error {
	qs := []*survey.Question{
		{
			Name: "topic",
			Prompt: &survey.Input{
				Message: "What should the committee discuss?",
				Help:    "A market topic or news headline, e.g. \"AI chip export ban\"",
				Default: f.topic,
			},
			Validate: survey.Required,
		},
		{
			Name: "symbols",
			Prompt: &survey.Input{
				Message: "Ticker symbols (comma separated, optional):",
				Default: strings.Join(f.symbols, ","),
			},
			Validate: validateSymbols,
		},
		{
			Name: "horizon",
			Prompt: &survey.Select{
				Message: "Time horizon:",
				Options: []string{
					string(models.HorizonImmediate),
					string(models.HorizonShort),
					string(models.HorizonMedium),
					string(models.HorizonLong),
					string(models.HorizonExtended),
				},
				Default: orDefault(f.horizon, string(models.HorizonMedium)),
			},
		},
		{
			Name: "risk",
			Prompt: &survey.Select{
				Message: "Risk appetite:",
				Options: []string{string(models.RiskConservative), string(models.RiskBalanced), string(models.RiskAggressive)},
				Default: orDefault(f.risk, string(models.RiskBalanced)),
			},
		},
		{
			Name: "region",
			Prompt: &survey.Select{
				Message: "Market region:",
				Options: regions,
				Default: pickRegion(f.region),
			},
		},
	}

	answers := struct {
		Topic   string
		Symbols string
		Horizon string
		Risk    string
		Region  string
	}{}
	if err := survey.Ask(qs, &answers); err != nil {
		return err
	}

	f.topic = answers.Topic
	f.symbols = normalizeSymbols([]string{answers.Symbols})
	f.horizon = answers.Horizon
	f.risk = answers.Risk
	f.region = answers.Region

	proceed := true
	if err := survey.AskOne(&survey.Confirm{
		Message: fmt.Sprintf("Convene the committee on %q?", f.topic),
		Default: true,
	}, &proceed); err != nil {
		return err
	}
	if !proceed {
		return fmt.Errorf("cancelled")
	}
	return nil
}

func validateSymbols(val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("invalid input")
	}
	for _, sym := range normalizeSymbols([]string{s}) {
		if !tickerPattern.MatchString(sym) {
			return fmt.Errorf("invalid ticker %q (letters, numbers, dots and hyphens, max 10)", sym)
		}
	}
	return nil
}

func pickRegion(r string) string {
	r = strings.ToUpper(strings.TrimSpace(r))
	if slices.Contains(regions, r) {
		return r
	}
	return regions[0]
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
