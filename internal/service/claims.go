package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"nftmarket/internal/client/chain"
	"nftmarket/internal/models"
	"nftmarket/internal/repository"
)

const (
	claimFunction  = "haveBeenClaimed"
	claimedEncoded = "AQ=="
)

type ContractQuerier interface {
	QueryContract(ctx context.Context, req chain.QueryRequest) (*chain.QueryResponse, error)
}

// ClaimChecker asks the claim contract whether unclaimed records have been
// claimed since ingestion and persists the ones that were.
type ClaimChecker struct {
	Chain       ContractQuerier
	Repo        repository.ListingRepository
	Contract    string
	Collections []string
	Logger      *zap.Logger
}

// Refresh returns listings with IsClaimed updated from the contract.
func (c *ClaimChecker) Refresh(ctx context.Context, listings []models.Listing) ([]models.Listing, error) {
	if c == nil || c.Chain == nil || strings.TrimSpace(c.Contract) == "" {
		return listings, nil
	}
	var (
		nonces  []string
		indexes []int
	)
	for i, l := range listings {
		if l.IsClaimed {
			continue
		}
		nonce, ok := identifierNonce(l.Identifier)
		if !ok {
			continue
		}
		nonces = append(nonces, nonce)
		indexes = append(indexes, i)
	}
	if len(nonces) == 0 {
		return listings, nil
	}

	resp, err := c.Chain.QueryContract(ctx, chain.QueryRequest{
		ScAddress: c.Contract,
		FuncName:  claimFunction,
		Args:      nonces,
	})
	if err != nil {
		return nil, err
	}

	var claimed []int64
	for pos, idx := range indexes {
		if pos < len(resp.ReturnData) && resp.ReturnData[pos] == claimedEncoded {
			listings[idx].IsClaimed = true
			claimed = append(claimed, listings[idx].ID)
		}
	}
	if len(claimed) == 0 || c.Repo == nil {
		return listings, nil
	}
	for _, collection := range c.Collections {
		if _, err := c.Repo.MarkClaimed(ctx, collection, claimed); err != nil {
			return nil, err
		}
	}
	if c.Logger != nil {
		c.Logger.Info("records claimed", zap.Int("count", len(claimed)), zap.Strings("collections", c.Collections))
	}
	return listings, nil
}

// identifierNonce returns the hex nonce of an identifier like GUARDIAN-3d6635-0a.
func identifierNonce(identifier string) (string, bool) {
	parts := strings.Split(identifier, "-")
	if len(parts) < 3 || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
