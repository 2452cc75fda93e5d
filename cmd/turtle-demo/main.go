package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/turtlegfx/canvas/ipc"
	"github.com/turtlegfx/canvas/proc"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	// Must run before anything else so the server-role instance of this binary takes
	// over here instead of running the CLI.
	proc.Start()

	app := &cli.App{
		Name:  "turtle-demo",
		Usage: "draws a square on a canvas served by a second instance of this binary",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "side-length",
				Usage: "Side length of the square to draw.",
				Value: 100,
			},
			&cli.StringFlag{
				Name:  "pen-color",
				Usage: "Pen color to draw with.",
				Value: "black",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging.",
			},
		},
		Action: func(cliCtx *cli.Context) error {
			side := cliCtx.Float64("side-length")
			color := cliCtx.String("pen-color")

			var opts []proc.Option
			if cliCtx.Bool("verbose") {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return fmt.Errorf("building logger: %w", err)
				}
				opts = append(opts, proc.WithLogger(logger))
			}

			ctx := context.Background()
			return proc.Run(ctx, func(sess *proc.Session) error {
				id := ipc.NewClientID()

				do := func(req ipc.Request) (ipc.Response, error) {
					if err := sess.Send(ctx, id, req); err != nil {
						return ipc.Response{}, err
					}
					_, resp, err := sess.Recv(ctx)
					if err != nil {
						return ipc.Response{}, err
					}
					if resp.Kind == ipc.ResponseError {
						return ipc.Response{}, fmt.Errorf("server rejected request: %s", resp.Error)
					}
					return resp, nil
				}

				if _, err := do(ipc.Request{Kind: ipc.RequestPen, PenColor: color}); err != nil {
					return err
				}
				for i := 0; i < 4; i++ {
					if _, err := do(ipc.Request{Kind: ipc.RequestMoveForward, Distance: side}); err != nil {
						return err
					}
					if _, err := do(ipc.Request{Kind: ipc.RequestTurn, Angle: math.Pi / 2}); err != nil {
						return err
					}
				}

				resp, err := do(ipc.Request{Kind: ipc.RequestPollState})
				if err != nil {
					return err
				}
				fmt.Printf("drew %d segments, turtle back at (%.1f, %.1f)\n",
					len(resp.State.Segments), resp.State.Position.X, resp.State.Position.Y)

				if _, err := do(ipc.Request{Kind: ipc.RequestQuit}); err != nil {
					return err
				}
				return nil
			}, opts...)
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
