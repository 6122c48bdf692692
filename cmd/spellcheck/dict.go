package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/spellcheck/pkg/spellcheck"
	"github.com/japaniel/spellcheck/pkg/wordstore"
)

func newDictCmd(a *app) *cobra.Command {
	dict := &cobra.Command{
		Use:   "dict",
		Short: "Manage the shared and project dictionaries",
	}

	var tier string
	add := &cobra.Command{
		Use:   "add <word>...",
		Short: "Add words to a dictionary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := wordstore.ParseTier(tier)
			if err != nil {
				return &ExitError{Code: spellcheck.ExitIO, Err: err}
			}
			store, err := a.loadStore(cmd)
			if err != nil {
				return err
			}
			for _, w := range args {
				word := wordstore.Normalize(w)
				if word == "" {
					return &ExitError{Code: spellcheck.ExitIO, Err: fmt.Errorf("%q is not a word", w)}
				}
				if store.Has(word, t) {
					fmt.Fprintf(a.stdout, "%s is already in the %s dictionary\n", word, t)
					continue
				}
				if err := store.AddWord(word, t); err != nil {
					return &ExitError{Code: spellcheck.ExitIO, Err: err}
				}
				fmt.Fprintf(a.stdout, "%s %s to the %s dictionary %s\n",
					successStyle.Render("Added"), word, t, subtleStyle.Render("("+store.Path(t)+")"))
			}
			return nil
		},
	}
	add.Flags().StringVar(&tier, "tier", string(wordstore.TierProject), "dictionary to add to (shared or project)")

	var listTier string
	list := &cobra.Command{
		Use:   "list",
		Short: "Print the words of both dictionaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var only wordstore.Tier
			if listTier != "" {
				t, err := wordstore.ParseTier(listTier)
				if err != nil {
					return &ExitError{Code: spellcheck.ExitIO, Err: err}
				}
				only = t
			}
			store, err := a.loadStore(cmd)
			if err != nil {
				return err
			}
			for _, e := range store.Entries() {
				if only != "" && e.Tier != only {
					continue
				}
				fmt.Fprintf(a.stdout, "%s\t%s\n", e.Word, e.Tier)
			}
			return nil
		},
	}
	list.Flags().StringVar(&listTier, "tier", "", "only list one dictionary (shared or project)")

	dict.AddCommand(add, list)
	return dict
}

func (a *app) loadStore(cmd *cobra.Command) (*wordstore.Store, error) {
	cfg, _, err := a.setup(cmd)
	if err != nil {
		return nil, &ExitError{Code: spellcheck.ExitIO, Err: err}
	}
	store, err := wordstore.Load(cfg.Dictionaries.Shared, cfg.Dictionaries.Project)
	if err != nil {
		var loadErr *wordstore.DictionaryLoadError
		if errors.As(err, &loadErr) {
			return nil, &ExitError{Code: spellcheck.ExitDictionary, Err: err}
		}
		return nil, &ExitError{Code: spellcheck.ExitIO, Err: err}
	}
	return store, nil
}
