package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	"github.com/alzearly/trainctl/cmd/trainctl/subcommands/common"
	"github.com/alzearly/trainctl/cmd/trainctl/subcommands/logger"
	subtrain "github.com/alzearly/trainctl/cmd/trainctl/subcommands/train"
	subver "github.com/alzearly/trainctl/cmd/trainctl/subcommands/version"
	"github.com/alzearly/trainctl/pkg/utils/try"
	"github.com/youta-t/flarc"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.Default()
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	cf := common.DefaultCommonFlags(".")
	train := try.To(subtrain.New()).OrFatal(logger)
	version := try.To(subver.New()).OrFatal(logger)

	trainctl := try.To(
		flarc.NewCommandGroup(
			"Training pipeline orchestrator for the Alzearly prediction model",
			cf,
			flarc.WithSubcommand("train", train),
			flarc.WithSubcommand("version", version),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, trainctl, flarc.WithHelp(true)))
}
