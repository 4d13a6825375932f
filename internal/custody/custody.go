package custody

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/merlinlabs/merlin-api/internal/types"
	"github.com/merlinlabs/merlin-api/pkg/response"
)

var (
	// ErrNoWallet means no custodial key exists for the requested identity.
	// Orders owned by such identities cannot be executed unattended.
	ErrNoWallet = errors.New("custody: no wallet on file")

	ErrInvalidPrivateKey = errors.New("custody: invalid private key, expected hex-encoded secp256k1 key")
)

// Signer is a short-lived decrypted keypair. Callers must not retain it
// beyond the signing operation that required it, and must never log it.
type Signer struct {
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// Service manages custodial wallets: key generation, import, and signer
// lookup for the sweep pipeline.
type Service struct {
	db    *Database
	vault *Vault
}

func NewService(gormDB *gorm.DB, vault *Vault) *Service {
	return &Service{
		db:    NewDatabase(gormDB),
		vault: vault,
	}
}

// CreateWallet generates a fresh secp256k1 keypair for the Telegram user and
// stores it encrypted. An existing wallet is replaced.
func (s *Service) CreateWallet(telegramID string, profile Profile) (*CustodialWallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return s.storeKey(telegramID, profile, key)
}

// ImportWallet stores a user-supplied hex private key, re-encrypted under
// the vault key.
func (s *Service) ImportWallet(telegramID, privateKeyHex string, profile Profile) (*CustodialWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	return s.storeKey(telegramID, profile, key)
}

func (s *Service) storeKey(telegramID string, profile Profile, key *ecdsa.PrivateKey) (*CustodialWallet, error) {
	address := crypto.PubkeyToAddress(key.PublicKey)

	ciphertext, nonce, err := s.vault.Encrypt([]byte(hex.EncodeToString(crypto.FromECDSA(key))))
	if err != nil {
		return nil, err
	}

	wallet := &CustodialWallet{
		TelegramID:    telegramID,
		Username:      profile.Username,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		PublicAddress: address.Hex(),
		EncryptedKey:  ciphertext,
		Nonce:         nonce,
	}
	if err := s.db.UpsertWallet(wallet); err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "custody").
		Str("telegram_id", telegramID).
		Str("address", address.Hex()).
		Msg("custodial wallet stored")

	return wallet, nil
}

// LookupSigner fetches and decrypts the custodial key for an identity. The
// returned Signer must only live for the duration of a single signing call.
// Returns ErrNoWallet when no record exists and ErrDecryptionFailed when the
// stored ciphertext does not authenticate.
func (s *Service) LookupSigner(telegramID string) (*Signer, error) {
	wallet, err := s.db.GetWallet(telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoWallet
	}
	if err != nil {
		return nil, err
	}

	keyHex, err := s.vault.Decrypt(wallet.EncryptedKey, wallet.Nonce)
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(string(keyHex))
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return &Signer{
		Address: crypto.PubkeyToAddress(key.PublicKey),
		Key:     key,
	}, nil
}

// WalletAddress returns the public address for an identity without touching
// key material.
func (s *Service) WalletAddress(telegramID string) (string, error) {
	wallet, err := s.db.GetWallet(telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoWallet
	}
	if err != nil {
		return "", err
	}
	return wallet.PublicAddress, nil
}

// RemoveWallet destroys the encrypted key record. This is the only path that
// deletes key material.
func (s *Service) RemoveWallet(telegramID string) error {
	err := s.db.DeleteWallet(telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoWallet
	}
	return err
}

// GinHandlers contains HTTP handlers for custodial wallet endpoints.
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

type walletRequest struct {
	TelegramID string `json:"telegram_id" binding:"required"`
	PrivateKey string `json:"private_key"`
	Profile
}

// CreateWalletHandler handles POST requests to create or import a custodial
// wallet. A request carrying a private key is treated as an import.
func (h *GinHandlers) CreateWalletHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req walletRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		var (
			wallet *CustodialWallet
			err    error
		)
		if req.PrivateKey != "" {
			wallet, err = h.service.ImportWallet(req.TelegramID, req.PrivateKey, req.Profile)
		} else {
			wallet, err = h.service.CreateWallet(req.TelegramID, req.Profile)
		}
		if errors.Is(err, ErrInvalidPrivateKey) {
			response.BadRequest(c, err.Error())
			return
		}
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, &types.WalletResponse{
			TelegramID: req.TelegramID,
			Address:    wallet.PublicAddress,
		})
	}
}

// GetWalletHandler handles GET requests for a wallet's public address.
func (h *GinHandlers) GetWalletHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		telegramID := c.Param("telegram_id")

		address, err := h.service.WalletAddress(telegramID)
		if errors.Is(err, ErrNoWallet) {
			response.NotFound(c, "No wallet on file for this user")
			return
		}

		response.Handle(c, &types.WalletResponse{
			TelegramID: telegramID,
			Address:    address,
		}, err)
	}
}

// DeleteWalletHandler handles DELETE requests to destroy a custodial key.
func (h *GinHandlers) DeleteWalletHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		telegramID := c.Param("telegram_id")

		err := h.service.RemoveWallet(telegramID)
		if errors.Is(err, ErrNoWallet) {
			response.NotFound(c, "No wallet on file for this user")
			return
		}

		response.Handle(c, gin.H{"message": "wallet removed"}, err)
	}
}
