package docs_test

import (
	"bufio"
	"flag"
	"os"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/etnz/ledger/cmd"
	"github.com/etnz/ledger/docs"
	"github.com/google/subcommands"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

func TestTopics(t *testing.T) {
	// Every topic listed in readme.md can be loaded, and every topic is listed.
	file, err := os.Open("readme.md")
	if err != nil {
		t.Fatalf("failed to open readme.md: %v", err)
	}
	defer file.Close()

	var listed []string
	topicRegex := regexp.MustCompile(`^\*\s+([^:]+):.*$`)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if matches := topicRegex.FindStringSubmatch(scanner.Text()); len(matches) > 1 {
			listed = append(listed, strings.TrimSpace(matches[1]))
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("error scanning readme.md: %v", err)
	}

	for _, topic := range listed {
		if _, err := docs.GetTopic(topic); err != nil {
			t.Errorf("failed to get topic %q: %v", topic, err)
		}
	}

	all, err := docs.GetAllTopics()
	if err != nil {
		t.Fatalf("GetAllTopics() failed: %v", err)
	}
	for _, topic := range all {
		if !slices.Contains(listed, topic) {
			t.Errorf("topic %q is not listed in readme.md", topic)
		}
	}

	if _, err := docs.GetTopic("nope"); err == nil {
		t.Error("GetTopic(nope) succeeded, want an error")
	}
	everything, err := docs.GetTopics("*")
	if err != nil {
		t.Fatalf("GetTopics(*) failed: %v", err)
	}
	if !strings.Contains(everything, "# Periods") || !strings.Contains(everything, "# Storage") {
		t.Error("GetTopics(*) misses some topics")
	}
}

// TestCodeBlocks checks that the bash blocks of the topics only use
// existing commands and flags.
func TestCodeBlocks(t *testing.T) {
	commands := make(map[string][]string)
	for _, c := range cmd.Commands {
		commands[c.Cmd.Name()] = flagNames(c.Cmd)
	}

	all, err := docs.GetAllTopics()
	if err != nil {
		t.Fatal(err)
	}
	for _, topic := range all {
		content, err := docs.GetTopic(topic)
		if err != nil {
			t.Fatal(err)
		}
		for _, line := range bashLines(content) {
			fields := strings.Fields(line)
			if len(fields) == 0 || fields[0] != "ldg" {
				continue
			}
			// skip global flags.
			i := 1
			for i < len(fields) && strings.HasPrefix(fields[i], "-") {
				i++
				if i < len(fields) && fields[i-1] == "-config" {
					i++
				}
			}
			if i == len(fields) {
				t.Errorf("%s: %q has no command", topic, line)
				continue
			}
			flags, ok := commands[fields[i]]
			if !ok {
				t.Errorf("%s: unknown command %q", topic, fields[i])
				continue
			}
			for _, field := range fields[i+1:] {
				if name, ok := strings.CutPrefix(field, "-"); ok && !slices.Contains(flags, name) {
					t.Errorf("%s: command %q has no flag %q", topic, fields[i], name)
				}
			}
		}
	}
}

// bashLines returns the lines of the bash fenced code blocks of md.
func bashLines(md string) []string {
	src := []byte(md)
	root := goldmark.DefaultParser().Parse(text.NewReader(src))

	var lines []string
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !entering || !ok || string(fcb.Language(src)) != "bash" {
			return ast.WalkContinue, nil
		}
		for i := 0; i < fcb.Lines().Len(); i++ {
			line := fcb.Lines().At(i)
			lines = append(lines, strings.TrimSpace(string(line.Value(src))))
		}
		return ast.WalkContinue, nil
	})
	return lines
}

func flagNames(c subcommands.Command) []string {
	f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(f)
	var names []string
	f.VisitAll(func(fl *flag.Flag) { names = append(names, fl.Name) })
	return names
}
