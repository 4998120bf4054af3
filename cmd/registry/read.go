package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"registryScope/internal/config"
	"registryScope/internal/model"
)

func runRecord(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	addr, err := config.ParseAddress("address", s.cfg.Address)
	if err != nil {
		return err
	}
	rec, err := s.registry.Record(s.ctx, addr)
	if err != nil {
		return err
	}
	return s.out.Put(model.NewRecordView(addr, rec))
}

func runWork(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := config.ParseBigInt("id", s.cfg.ID)
	if err != nil {
		return err
	}
	if id == nil {
		return fmt.Errorf("id is required")
	}
	addr, err := s.registry.WorkRegistered(s.ctx, id)
	if err != nil {
		return err
	}
	return s.out.Put(model.NewWorkView(id, addr))
}

func runStats(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	num, err := s.registry.NumRecords(s.ctx)
	if err != nil {
		return err
	}
	maxID, err := s.registry.MaxID(s.ctx)
	if err != nil {
		return err
	}
	return s.out.Put(model.StatsView{
		Contract:   s.registry.Address().Hex(),
		NumRecords: num.String(),
		MaxID:      maxID.String(),
	})
}
