package mappers

import (
	entities "github.com/dbirdge/btcrelay/internal/domain/entities/solana"
	"github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana/models"
)

func ToAccount(entity entities.Account) models.Account {
	return models.Account{
		PublicKey:  entity.PublicKey,
		PrivateKey: entity.PrivateKey,
	}
}

func FromAccount(model models.Account) entities.Account {
	return entities.Account{
		PublicKey:  model.PublicKey,
		PrivateKey: model.PrivateKey,
	}
}
