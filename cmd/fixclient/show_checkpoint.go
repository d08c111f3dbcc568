package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCheckpointCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show-checkpoint",
		Short: "print the persisted sequence-number checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile, nil)
			if err != nil {
				return fmt.Errorf("fixclient: %w", err)
			}
			store, err := newStore(cfg)
			if err != nil {
				return fmt.Errorf("fixclient: open checkpoint store: %w", err)
			}
			rec, ok, err := store.Load(cfg.SenderCompID)
			if err != nil {
				return fmt.Errorf("fixclient: load checkpoint: %w", err)
			}
			if !ok {
				fmt.Printf("no checkpoint persisted for %s\n", cfg.SenderCompID)
				return nil
			}
			fmt.Printf("sender_comp_id=%s target_comp_id=%s outbound_seq_no=%d next_expected_seq_no=%d\n",
				rec.SenderCompID, rec.TargetCompID, rec.OutboundSeqNo, rec.NextExpectedSeqNo)
			return nil
		},
	}
}
