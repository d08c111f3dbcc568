package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fixclient/session"
)

func newResetSeqNumCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-seqnum",
		Short: "zero the persisted checkpoint so the next run starts fresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile, nil)
			if err != nil {
				return fmt.Errorf("fixclient: %w", err)
			}
			store, err := newStore(cfg)
			if err != nil {
				return fmt.Errorf("fixclient: open checkpoint store: %w", err)
			}
			rec := session.Checkpoint{
				SenderCompID:      cfg.SenderCompID,
				TargetCompID:      cfg.TargetCompID,
				OutboundSeqNo:     0,
				NextExpectedSeqNo: 1,
			}
			if err := store.Save(rec); err != nil {
				return fmt.Errorf("fixclient: save checkpoint: %w", err)
			}
			fmt.Printf("checkpoint for %s reset: outbound_seq_no=0 next_expected_seq_no=1\n", cfg.SenderCompID)
			return nil
		},
	}
}
