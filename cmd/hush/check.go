package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bluesky-social/chatmod/chatmod/engine"

	cli "github.com/urfave/cli/v2"
	"github.com/xlab/treeprint"
)

var checkCmd = &cli.Command{
	Name:      "check",
	Usage:     "evaluate one or more messages and print the verdicts",
	ArgsUsage: `<message> [<message>...]`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "community",
			Aliases: []string{"c"},
			Usage:   "community whose configuration applies",
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "sender user id (for whitelist lookups)",
		},
		&cli.StringFlag{
			Name:  "platform",
			Value: "cli",
		},
		&cli.BoolFlag{
			Name:  "tree",
			Usage: "print verdicts as a tree instead of JSON",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		if cctx.Args().Len() == 0 {
			return fmt.Errorf("need at least one message to check")
		}
		if cctx.Args().Len() > engine.MaxBatchSize {
			return engine.ErrBatchTooLarge
		}

		logger := configLogger(cctx)
		eng, err := setupEngine(engineConfigFromFlags(cctx, logger))
		if err != nil {
			return err
		}
		defer eng.Violations.Flush()

		reqs := make([]engine.Request, 0, cctx.Args().Len())
		for _, msg := range cctx.Args().Slice() {
			reqs = append(reqs, engine.Request{
				Message:     msg,
				CommunityID: cctx.String("community"),
				UserID:      cctx.String("user"),
				Platform:    cctx.String("platform"),
			})
		}

		var verdicts []engine.Verdict
		if len(reqs) == 1 {
			v, err := eng.CheckMessage(ctx, reqs[0])
			if err != nil {
				return err
			}
			verdicts = []engine.Verdict{*v}
		} else {
			verdicts = eng.CheckMessagesBatch(ctx, reqs)
		}

		if cctx.Bool("tree") {
			for _, v := range verdicts {
				fmt.Fprint(os.Stdout, verdictTree(&v))
			}
			return nil
		}
		return printJSON(os.Stdout, verdicts)
	},
}

func printJSON(w io.Writer, verdicts []engine.Verdict) error {
	var out any = verdicts
	if len(verdicts) == 1 {
		out = verdicts[0]
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Renders a verdict as a tree: the message at the root, then the decision, then any findings.
func verdictTree(v *engine.Verdict) string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("%q", v.Original))
	tree.AddMetaNode("action", string(v.Action))
	tree.AddMetaNode("severity", string(v.Severity))
	tree.AddMetaNode("filter", string(v.FilterType))
	if v.Error != "" {
		tree.AddMetaNode("error", v.Error)
	}
	if v.Censored != nil {
		tree.AddMetaNode("censored", fmt.Sprintf("%q", *v.Censored))
	}
	if v.SpamScore > 0 {
		tree.AddMetaNode("spam score", v.SpamScore)
	}
	if len(v.Violations) > 0 {
		branch := tree.AddMetaBranch("violations", len(v.Violations))
		for _, term := range v.Violations {
			branch.AddNode(term)
		}
	}
	if len(v.BlockedURLs) > 0 {
		branch := tree.AddMetaBranch("blocked urls", len(v.BlockedURLs))
		for _, u := range v.BlockedURLs {
			branch.AddNode(u)
		}
	}
	return strings.TrimRight(tree.String(), "\n") + "\n"
}
