package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"registryScope/internal/config"
	"registryScope/internal/model"
	"registryScope/internal/registry"
)

func runTx(method string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		from, err := config.ParseAddress("sender", s.cfg.Sender)
		if err != nil {
			return err
		}
		target, err := config.ParseAddress("target", s.cfg.Target)
		if err != nil {
			return err
		}
		value, err := config.ParseBigInt("value", s.cfg.Value)
		if err != nil {
			return err
		}
		opts := registry.TxOptions{Gas: s.cfg.Gas, Value: value}

		var submit func(context.Context, common.Address, common.Address, registry.TxOptions) (common.Hash, error)
		switch method {
		case "register":
			submit = s.registry.Register
		case "unregister":
			submit = s.registry.Unregister
		default:
			return fmt.Errorf("unknown method %s", method)
		}

		hash, err := submit(s.ctx, from, target, opts)
		if err != nil {
			return err
		}
		s.logger.Info("transaction submitted",
			zap.String("method", method),
			zap.String("tx_hash", hash.Hex()),
		)
		return s.out.Put(model.TxView{
			Method: method,
			From:   from.Hex(),
			Target: target.Hex(),
			TxHash: hash.Hex(),
		})
	}
}
