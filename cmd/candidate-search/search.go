package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"candidate-search/internal/config"
	"candidate-search/internal/types"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

const searchPrompt = "Enter your search query (press Enter to quit): "

// querySearcher REPL 依赖的检索能力
type querySearcher interface {
	Search(ctx context.Context, query string) (*types.QueryResult, error)
}

func runSearch(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	c, err := newComponents(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer c.Close()

	searcher, _, err := c.searcher(ctx)
	if err != nil {
		return err
	}
	return runREPL(ctx, searcher, os.Stdin, os.Stdout, log)
}

// runREPL 逐行读取查询并打印最相近的候选人，空行或输入结束时退出。
// 单次检索失败只打印错误，不退出循环；向量维度不一致等配置类错误直接返回。
func runREPL(ctx context.Context, searcher querySearcher, in io.Reader, out io.Writer, log zerolog.Logger) error {
	label := color.New(color.FgGreen, color.Bold).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, searchPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			return nil
		}

		result, err := searcher.Search(ctx, query)
		if err != nil {
			log.Error().Err(err).Msg("检索失败")
			fmt.Fprintf(out, "%s %v\n", fail("Search failed:"), err)
			if types.IsFatal(err) {
				return err
			}
			continue
		}
		if result == nil {
			fmt.Fprintln(out, warn("No matching candidate found."))
			continue
		}
		fmt.Fprintf(out, "%s %s\n", label("Candidate Name:"), result.CandidateName)
		fmt.Fprintf(out, "%s %s\n", label("email:"), result.Email)
		fmt.Fprintf(out, "%s %s\n", label("Skillset:"), result.Skillset)
		fmt.Fprintf(out, "%s %g\n", label("Score:"), result.Score)
	}
}
