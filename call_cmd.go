package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/callboard/internal/calls"
	"github.com/dgnsrekt/callboard/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var callCmd = &cobra.Command{
	Use:     "call NAME ROOM",
	Short:   "Call a patient to a room",
	Long:    paragraph(fmt.Sprintf("\n%s a patient by adding a call to the store. A running board picks it up and announces it.", keyword("Call"))),
	Example: paragraph("callboard call \"Ana Lima\" 4\ncallboard call --store /srv/calls \"Carlos Dias\" 2"),
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := addCall(viper.GetString("store"), viper.GetString("key"), args[0], args[1], time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Called %s to room %s\n", rec.Name, rec.Room)
		return nil
	},
}

func addCall(dir, key, name, room string, at time.Time) (calls.Record, error) {
	if key == "" {
		key = store.DefaultKey
	}
	s, err := store.Open(dir)
	if err != nil {
		return calls.Record{}, err
	}

	rec := calls.Record{Name: name, Room: room, Timestamp: at.UTC()}
	if err := s.Prepend(key, rec); err != nil {
		return calls.Record{}, fmt.Errorf("unable to add call: %w", err)
	}
	log.Info("call added", "name", name, "room", room, "store", s.Path(key))
	return rec, nil
}
