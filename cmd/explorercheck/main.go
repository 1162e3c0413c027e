package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/park285/Cheese-Analysis-Board/internal/chess/rules"
	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
	"github.com/park285/Cheese-Analysis-Board/internal/explorer"
)

func main() {
	fen := flag.String("fen", "", "position to probe (default: standard start)")
	db := flag.String("db", explorer.DatabaseLichess, "explorer database: lichess or masters")
	timeout := flag.Duration("timeout", 8*time.Second, "per-request timeout")
	flag.Parse()

	if *fen == "" {
		*fen = rules.NewStandard().FEN()
	}
	token := os.Getenv("LICHESS_TOKEN")

	client := explorer.NewClient(
		explorer.WithBaseURL(os.Getenv("EXPLORER_BASE_URL")),
		explorer.WithDatabase(*db),
		explorer.WithToken(token),
		explorer.WithTimeout(*timeout),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*(*timeout))
	defer cancel()

	sample, err := client.Sample(ctx, *fen)
	if err != nil {
		log.Printf("explorer error: %v", err)
	} else {
		log.Printf("explorer ok: db=%s moves=%d games=%d", client.Database(), len(sample), sample.Total())
		for _, mv := range sample {
			fmt.Printf("  %-6s %-7s %d\n", mv.UCI, mv.SAN, mv.Count)
		}
	}

	cloud := evaluation.NewCloudClient(
		evaluation.WithCloudBaseURL(os.Getenv("CLOUD_EVAL_BASE_URL")),
		evaluation.WithCloudTimeout(*timeout),
		evaluation.WithCloudToken(token),
	)
	res, err := cloud.CloudEval(ctx, *fen)
	if err != nil {
		log.Printf("cloud eval error: %v", err)
		return
	}
	log.Printf("cloud eval ok: %s (white) / %s (%s to move) depth=%d",
		res.Score.Text(),
		evaluation.Display(res.Score, *fen, evaluation.PerspectiveSideToMove),
		board.SideToMoveFromFEN(*fen),
		res.Depth)
}
