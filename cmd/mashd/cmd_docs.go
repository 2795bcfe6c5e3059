package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thomasrohde/mashd/pkg/help"
	"github.com/thomasrohde/mashd/pkg/stdlib"
)

var flagIndex bool

var docsCmd = &cobra.Command{
	Use:       "docs [topic]",
	Short:     "Show the pipeline reference",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: append([]string{"methods"}, help.TopicList...),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		topic := ""
		if len(args) == 1 {
			topic = args[0]
		}

		if flagIndex {
			if topic != "methods" {
				return fmt.Errorf("--index is only supported for the methods topic")
			}
			fmt.Fprint(w, help.MethodIndex(stdlib.Defaults()))
			return nil
		}
		if topic == "" {
			fmt.Fprint(w, help.QUICKREF)
			return nil
		}
		if topic == "methods" {
			fmt.Fprint(w, help.MethodIndex(stdlib.Defaults()))
			return nil
		}

		_, content, err := help.MatchTopic(topic)
		if err != nil {
			return fmt.Errorf("%w\navailable topics: %s", err, strings.Join(help.TopicList, ", "))
		}
		fmt.Fprint(w, content)
		return nil
	},
}

func init() {
	docsCmd.Flags().BoolVar(&flagIndex, "index", false, "list every scalar method (with the methods topic)")
}
