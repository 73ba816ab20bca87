package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"microAMM/internal/amm"
	"microAMM/internal/derive"
	"microAMM/internal/model"
)

// Execute applies one instruction to the program and builds its receipt.
// Pool errors end up in the receipt; any other error is returned so the
// caller can retry or abort. An instruction whose outcome is already
// recorded is not applied again; its receipt is rebuilt from the record.
func Execute(ctx context.Context, program *amm.Program, ins model.Instruction) (model.Receipt, error) {
	receipt := model.Receipt{
		Seq:       ins.Seq,
		Kind:      ins.Kind,
		Pool:      ins.Pool,
		Signer:    ins.Signer,
		Direction: ins.Direction,
		AmountA:   ins.AmountA,
		AmountB:   ins.AmountB,
		AmountIn:  ins.AmountIn,
	}

	recorded, ok, err := program.Outcome(ctx, ins.Seq)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("load outcome %d: %w", ins.Seq, err)
	}
	if ok {
		receipt = receipt.WithOutcome(recorded)
		receipt.ProcessedAt = time.Now().UTC().Format(time.RFC3339Nano)
		return receipt, nil
	}

	err = apply(amm.WithSequence(ctx, ins.Seq), program, ins, &receipt)
	if err != nil && !model.IsDomainError(err) {
		return model.Receipt{}, err
	}
	if err != nil {
		codespace, code, _ := errorsmod.ABCIInfo(err, false)
		receipt.Codespace = codespace
		receipt.Code = code
		receipt.Error = err.Error()
		if err := program.RecordRejection(ctx, receipt.Outcome()); err != nil {
			return model.Receipt{}, fmt.Errorf("record rejection %d: %w", ins.Seq, err)
		}
	} else {
		receipt.OK = true
	}
	receipt.ProcessedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return receipt, nil
}

func apply(ctx context.Context, program *amm.Program, ins model.Instruction, receipt *model.Receipt) error {
	switch ins.Kind {
	case model.KindInitialize:
		params, err := initializeParams(ins)
		if err != nil {
			return err
		}
		if addr, _, err := derive.FindPoolAddress(program.ProgramID(), params.TokenA, params.TokenB); err == nil {
			receipt.Pool = addr.Hex()
		}
		pool, err := program.Initialize(ctx, params)
		if err != nil {
			return err
		}
		receipt.Pool = pool.Address.Hex()
		return nil

	case model.KindAddLiquidity:
		poolAddr, accounts, err := poolAccounts(ins)
		if err != nil {
			return err
		}
		reserves, err := program.AddLiquidity(ctx, poolAddr, ins.AmountA, ins.AmountB, accounts)
		if err != nil {
			return err
		}
		receipt.ReserveA, receipt.ReserveB = reserves.A, reserves.B
		return nil

	case model.KindSwap:
		poolAddr, accounts, err := poolAccounts(ins)
		if err != nil {
			return err
		}
		res, err := program.Swap(ctx, poolAddr, ins.AmountIn, ins.Direction, accounts)
		if err != nil {
			return err
		}
		receipt.AmountOut = res.AmountOut
		receipt.Fee = res.Fee
		if res.Direction == model.BToA {
			receipt.ReserveA, receipt.ReserveB = res.ReserveOut, res.ReserveIn
		} else {
			receipt.ReserveA, receipt.ReserveB = res.ReserveIn, res.ReserveOut
		}
		return nil

	default:
		return errorsmod.Wrapf(model.ErrInvalidInstruction, "unknown kind %q", ins.Kind)
	}
}

func initializeParams(ins model.Instruction) (amm.InitializeParams, error) {
	var params amm.InitializeParams
	fields := []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"token_a", ins.TokenA, &params.TokenA},
		{"token_b", ins.TokenB, &params.TokenB},
		{"custody_a", ins.CustodyA, &params.CustodyA},
		{"custody_b", ins.CustodyB, &params.CustodyB},
		{"authority", ins.Authority, &params.Authority},
		{"signer", ins.Signer, &params.Signer},
	}
	for _, f := range fields {
		addr, err := instructionAddress(f.name, f.value)
		if err != nil {
			return amm.InitializeParams{}, err
		}
		*f.dst = addr
	}
	params.FeeBps = ins.FeeBps
	return params, nil
}

func poolAccounts(ins model.Instruction) (common.Address, amm.Accounts, error) {
	poolAddr, err := instructionAddress("pool", ins.Pool)
	if err != nil {
		return common.Address{}, amm.Accounts{}, err
	}
	var accounts amm.Accounts
	fields := []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"signer", ins.Signer, &accounts.Signer},
		{"custody_a", ins.CustodyA, &accounts.CustodyA},
		{"custody_b", ins.CustodyB, &accounts.CustodyB},
	}
	for _, f := range fields {
		addr, err := instructionAddress(f.name, f.value)
		if err != nil {
			return common.Address{}, amm.Accounts{}, err
		}
		*f.dst = addr
	}
	return poolAddr, accounts, nil
}

// conflictKeys names the pool and ledger accounts an instruction touches.
// Instructions that share a key must run in order.
func conflictKeys(programID common.Address, ins model.Instruction) []string {
	keys := make([]string, 0, 4)
	if ins.Kind == model.KindInitialize {
		tokenA, errA := ParseAddress(ins.TokenA)
		tokenB, errB := ParseAddress(ins.TokenB)
		if errA == nil && errB == nil {
			if addr, _, err := derive.FindPoolAddress(programID, tokenA, tokenB); err == nil {
				keys = append(keys, "pool:"+addr.Hex())
			}
		}
	} else if addr, err := ParseAddress(ins.Pool); err == nil {
		keys = append(keys, "pool:"+addr.Hex())
	}
	for _, account := range []string{ins.Signer, ins.CustodyA, ins.CustodyB} {
		if addr, err := ParseAddress(account); err == nil {
			keys = append(keys, "account:"+addr.Hex())
		}
	}
	if len(keys) == 0 {
		keys = append(keys, "seq:"+strconv.FormatUint(ins.Seq, 10))
	}
	return keys
}

// groupByConflict partitions batch positions so that instructions sharing
// any conflict key land in one group. Groups and their members keep batch
// order.
func groupByConflict(keys [][]string) [][]int {
	parent := make(map[string]string)
	find := func(k string) string {
		for parent[k] != k {
			parent[k] = parent[parent[k]]
			k = parent[k]
		}
		return k
	}

	for _, ks := range keys {
		for _, k := range ks {
			if _, ok := parent[k]; !ok {
				parent[k] = k
			}
		}
		root := find(ks[0])
		for _, k := range ks[1:] {
			if r := find(k); r != root {
				parent[r] = root
			}
		}
	}

	var order []string
	members := make(map[string][]int)
	for i, ks := range keys {
		root := find(ks[0])
		if _, ok := members[root]; !ok {
			order = append(order, root)
		}
		members[root] = append(members[root], i)
	}

	groups := make([][]int, 0, len(order))
	for _, root := range order {
		groups = append(groups, members[root])
	}
	return groups
}
