package stocktake_test

import "github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"

func repositoryFilter(status string) repository.StocktakeFilter {
	return repository.StocktakeFilter{Status: status}
}
