package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"phronesis/config"
	"phronesis/interview"
	"phronesis/models"
	"phronesis/prompts"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run one interview in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return runChat(ctx, a.registry, a.conductor, cfg.Catalog, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runChat drives a single session over line-oriented input. It returns when
// the interview completes, the input ends or the user types /quit.
func runChat(ctx context.Context, registry *interview.Registry, conductor *interview.Conductor, catalog models.Catalog, in io.Reader, out io.Writer) error {
	session := registry.Create()
	defer registry.Delete(session.ID)

	scanner := bufio.NewScanner(in)
	readLine := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		line := strings.TrimSpace(scanner.Text())
		return line, line != "/quit"
	}

	fmt.Fprintf(out, "[Agent] %s\n%s", prompts.WelcomeMessage, prompts.FormatOptions(catalog.Locations))
	for session.Stage() == models.StageChooseLocation {
		line, ok := readLine("> ")
		if !ok {
			return scanner.Err()
		}
		id, found := resolveChoice(line, catalog.Locations)
		if !found {
			fmt.Fprintln(out, "목록의 번호나 이름을 입력해 주세요.")
			continue
		}
		if _, err := conductor.ChooseLocation(session, models.Location(id)); err != nil {
			fmt.Fprintln(out, err)
		}
	}

	fmt.Fprintf(out, "[Agent] %s\n%s", prompts.ToolQuestion, prompts.FormatOptions(catalog.Tools))
	for session.Stage() == models.StageChooseTool {
		line, ok := readLine("> ")
		if !ok {
			return scanner.Err()
		}
		id, found := resolveChoice(line, catalog.Tools)
		if !found {
			fmt.Fprintln(out, "목록의 번호나 이름을 입력해 주세요.")
			continue
		}
		reply, err := conductor.ChooseTool(ctx, session, models.Tool(id))
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		printReply(out, reply)
	}

	for session.Stage() == models.StageDialogue {
		if session.AwaitingOpening() {
			if _, ok := readLine("(Enter를 누르면 다시 시도합니다) "); !ok {
				return scanner.Err()
			}
			reply, err := conductor.RetryOpening(ctx, session)
			if err != nil {
				return err
			}
			printReply(out, reply)
			continue
		}

		line, ok := readLine("[User] ")
		if !ok {
			return scanner.Err()
		}
		if line == "" {
			continue
		}
		reply, err := conductor.Submit(ctx, session, line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		printReply(out, reply)
	}

	return nil
}

func printReply(out io.Writer, reply *interview.Reply) {
	if reply.ModelError != "" {
		fmt.Fprintln(out, reply.ModelError)
	}
	if reply.AgentTurn != nil {
		fmt.Fprintf(out, "[Agent] %s\n", strings.TrimSpace(reply.AgentTurn.Text))
	}
	if reply.Report != nil {
		fmt.Fprintln(out, "\n=== 분석 결과 ===")
		for _, key := range []string{
			models.ReportKeyTitle, models.ReportKeyCoreValue, models.ReportKeyMonetization,
			models.ReportKeyVerdict, models.ReportKeyConfidence,
		} {
			if v, ok := reply.Report[key]; ok {
				fmt.Fprintf(out, "%s: %s\n", key, v)
			}
		}
	}
	for _, w := range reply.Warnings {
		fmt.Fprintf(out, "(warning) %s\n", w)
	}
}

// resolveChoice accepts a 1-based option number, an id or a display name
func resolveChoice(input string, options []models.Archetype) (string, bool) {
	input = strings.TrimSpace(input)
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1].ID, true
		}
		return "", false
	}

	norm := strings.ReplaceAll(strings.ToLower(input), "-", "_")
	if norm == "repairkit" {
		norm = string(models.ToolRepairKit)
	}
	for _, o := range options {
		if norm == o.ID || strings.EqualFold(input, o.Name) {
			return o.ID, true
		}
	}
	return "", false
}
