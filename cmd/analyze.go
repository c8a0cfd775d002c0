package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/wildrank/wrscout/internal/dal"
	"github.com/wildrank/wrscout/internal/stats"
)

const analyzeSystemPrompt = `You are an FRC scouting analyst helping a drive team prepare for alliance
selection. You are given structured scouting data for one team at an event
and a question from the strategy lead.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers when making a claim, and compare the team's
  value with the event value when both are given.
- If the data is insufficient to answer confidently, say so explicitly.
- Statistics marked "lower_is_better" are penalties: a lower value is better.
- Notes are free text written by scouts and may be unreliable.
- Be concise and actionable. Format the answer as Markdown.`

const defaultTeamQuestion = "What does this team do well, where is it weak, and how would it fit on our alliance?"

var (
	analyzeModel  string
	analyzeAPIKey string
	analyzeRender bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "AI-powered grounded analysis (requires ANTHROPIC_API_KEY)",
}

var analyzeTeamCmd = &cobra.Command{
	Use:   "team <team> [question]",
	Short: "Analyze a team's scouting data with AI",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAnalyzeTeam,
}

func init() {
	analyzeCmd.PersistentFlags().StringVar(&analyzeModel, "model", "claude-haiku-4-5-20251001", "Anthropic model to use")
	analyzeCmd.PersistentFlags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
	analyzeCmd.PersistentFlags().BoolVar(&analyzeRender, "render", false, "wait for the full answer and render it as Markdown")

	analyzeCmd.AddCommand(analyzeTeamCmd)
}

// teamBrief is the data handed to the model for one team.
type teamBrief struct {
	Event    string      `json:"event"`
	Team     int         `json:"team"`
	Name     string      `json:"name,omitempty"`
	Location string      `json:"location,omitempty"`
	Matches  int         `json:"matches_scheduled"`
	Scouted  int         `json:"matches_scouted"`
	Stats    []statLine  `json:"stats"`
	PerMatch []matchLine `json:"per_match,omitempty"`
	Notes    []string    `json:"notes,omitempty"`
}

type statLine struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	Stat          string `json:"stat"`
	Team          string `json:"team"`
	Event         string `json:"event,omitempty"`
	LowerIsBetter bool   `json:"lower_is_better,omitempty"`
}

type matchLine struct {
	Match   string            `json:"match"`
	Unsure  bool              `json:"unsure,omitempty"`
	Results map[string]string `json:"results"`
}

func runAnalyzeTeam(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, d, err := openEvent(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	teams, err := dal.ParseTeams(args[:1])
	if err != nil {
		return err
	}
	brief, err := buildTeamBrief(d, teams[0])
	if err != nil {
		return err
	}
	if brief.Scouted == 0 && len(brief.Notes) == 0 {
		fmt.Fprintf(os.Stderr, "warning: team %d has no scouted matches yet\n", brief.Team)
	}

	question := defaultTeamQuestion
	if len(args) == 2 {
		question = args[1]
	}
	data, err := json.MarshalIndent(brief, "", "  ")
	if err != nil {
		return fmt.Errorf("encode brief: %w", err)
	}
	return callAnthropic(ctx, analyzeAPIKey, analyzeModel, string(data), question)
}

// buildTeamBrief collects the team's default statistic for every numeric or
// option key next to the event value, the smart results per scouted match
// and the scouts' free text.
func buildTeamBrief(d *dal.Data, team int) (*teamBrief, error) {
	t := d.GetTeamResult(team)
	if t == nil {
		return nil, fmt.Errorf("team %d is not at %s", team, d.EventID)
	}
	cfg := d.Config()
	brief := &teamBrief{
		Event:    d.EventID,
		Team:     team,
		Name:     t.Name,
		Location: strings.Join(nonEmpty(t.City, t.StateProv, t.Country), ", "),
		Matches:  len(t.Matches),
	}

	keys := append(cfg.TeamKeys(), cfg.MatchKeys()...)
	for _, k := range keys {
		def, err := cfg.ResultFromKey(k)
		if err != nil {
			continue
		}
		if def.Type == stats.TypeString {
			continue
		}
		if len(def.AvailableStats()) == 0 {
			continue
		}
		m := def.DefaultStat()
		v := d.ComputeTeamStat(k, team, m)
		if v == nil {
			continue
		}
		line := statLine{
			Key:           k.String(),
			Name:          def.Name,
			Stat:          string(m),
			Team:          def.Clean(v),
			LowerIsBetter: def.Negative,
		}
		if !cfg.IsTeamKey(k) {
			line.Event = def.Clean(d.ComputeStat(k, nil, m))
		}
		brief.Stats = append(brief.Stats, line)
	}

	for _, s := range t.Submissions("pit") {
		brief.Notes = append(brief.Notes, textValues(s.Values)...)
	}
	for _, mk := range t.Matches {
		mr := d.GetMatchResult(mk, team)
		if mr == nil || len(mr.Modes()) == 0 {
			continue
		}
		brief.Scouted++
		line := matchLine{Match: d.Matches[mk].Name, Unsure: mr.Unsure(), Results: map[string]string{}}
		for _, def := range cfg.SmartStats() {
			if cfg.IsTeamKey(def.Key) {
				continue
			}
			if v := mr.Value(def.Key); v != nil {
				line.Results[def.Key.String()] = def.Clean(v)
			}
		}
		brief.PerMatch = append(brief.PerMatch, line)
		for _, mode := range mr.Modes() {
			if b := mr.Best(mode); b != nil {
				for _, n := range textValues(b.Values) {
					brief.Notes = append(brief.Notes, line.Match+": "+n)
				}
			}
		}
	}
	return brief, nil
}

// textValues returns the non-empty free text answers of a submission.
func textValues(values map[string]any) []string {
	var out []string
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, ok := values[k].(string)
		if !ok || !isFreeText(k) {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isFreeText(field string) bool {
	for _, hint := range []string{"comment", "notes", "strategy"} {
		if strings.Contains(field, hint) {
			return true
		}
	}
	return false
}

func nonEmpty(ss ...string) []string {
	var out []string
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// callAnthropic streams a response from the Anthropic API and prints it to
// stdout, or renders the collected answer as Markdown with --render.
func callAnthropic(ctx context.Context, apiKey, modelID, dataJSON, question string) error {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(os.Stdout, "\n─── AI Analysis ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	var answer strings.Builder
	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				text := delta.Delta.AsTextDelta().Text
				if analyzeRender {
					answer.WriteString(text)
				} else {
					fmt.Fprint(os.Stdout, text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed: check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}

	if analyzeRender {
		out, err := glamour.Render(answer.String(), "dark")
		if err != nil {
			return fmt.Errorf("render answer: %w", err)
		}
		fmt.Fprint(os.Stdout, out)
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")
	return nil
}
