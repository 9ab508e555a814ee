package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newKnowledgeCmd(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Knowledge base commands",
	}

	var file string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Upsert knowledge base entries from YAML",
		Long:  "Loads --file, or KNOWLEDGE_BASE_FILE, or the built-in entries, and upserts them by id.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			kbCfg := s.cfg.KnowledgeBase
			if file != "" {
				kbCfg.File = file
			}
			n, err := s.backend.SeedKnowledgeBase(cmd.Context(), kbCfg, s.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d knowledge base entries\n", n)
			return nil
		},
	}
	seed.Flags().StringVarP(&file, "file", "f", "", "YAML file with an entries list")
	cmd.AddCommand(seed)
	return cmd
}

func newConversationsCmd(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "Conversation maintenance commands",
	}

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete unfinished conversations idle longer than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if !cmd.Flags().Changed("older-than") {
				olderThan = s.cfg.Sweep.ConversationTTL()
			}
			removed, err := s.services.Conversations.PurgeStale(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale conversations\n", removed)
			return nil
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 0, "idle age, e.g. 72h (default SWEEP_CONVERSATION_TTL_HOURS)")
	cmd.AddCommand(purge)
	return cmd
}
