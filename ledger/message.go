// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

import (
	"crypto/rand"
	"fmt"

	"github.com/0xsoniclabs/ledger/common"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/nacl/sign"
)

// ServiceID identifies messages addressed to the ledger.
const ServiceID uint16 = 128

// SignatureSize is the size of a detached message signature.
const SignatureSize = 64

// Message is the signed envelope of a transaction.
type Message struct {
	ServiceID uint16
	Kind      Kind
	Body      []byte
	Signature [SignatureSize]byte
}

// signedPayload is the part of a message covered by its signature.
type signedPayload struct {
	ServiceID uint16
	Kind      Kind
	Body      []byte
}

// SecretKey is a NaCl signing key; the last 32 bytes are its public key.
type SecretKey [64]byte

func (k *SecretKey) PublicKey() common.PublicKey {
	return common.PublicKey(k[32:])
}

// GenerateKey creates a fresh signing key.
func GenerateKey() (*SecretKey, error) {
	_, key, err := sign.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return (*SecretKey)(key), nil
}

// NewMessage encodes the transaction and signs it with the given key.
func NewMessage(tx Transaction, key *SecretKey) (*Message, error) {
	body, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	msg := &Message{ServiceID: ServiceID, Kind: tx.Kind(), Body: body}
	payload, err := msg.payload()
	if err != nil {
		return nil, err
	}
	signed := sign.Sign(nil, payload, (*[64]byte)(key))
	copy(msg.Signature[:], signed[:SignatureSize])
	return msg, nil
}

// DecodeMessage parses an encoded message.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := rlp.DecodeBytes(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return &msg, nil
}

// Encode returns the wire format of the message.
func (m *Message) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(m)
}

// Hash returns the keccak256 hash of the encoded message, identifying the
// transaction in histories, timestamps and the transaction log.
func (m *Message) Hash() (common.Hash, error) {
	data, err := m.Encode()
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode message: %w", err)
	}
	return common.Keccak256(data), nil
}

// IsSignedBy checks whether the message carries a valid signature of the
// given key.
func (m *Message) IsSignedBy(key common.PublicKey) bool {
	payload, err := m.payload()
	if err != nil {
		return false
	}
	signed := make([]byte, 0, SignatureSize+len(payload))
	signed = append(signed, m.Signature[:]...)
	signed = append(signed, payload...)
	_, ok := sign.Open(nil, signed, (*[32]byte)(&key))
	return ok
}

// Transaction decodes the transaction carried by the message.
func (m *Message) Transaction() (Transaction, error) {
	if m.ServiceID != ServiceID {
		return nil, fmt.Errorf("unknown service %d", m.ServiceID)
	}
	var tx Transaction
	switch m.Kind {
	case KindTransfer:
		tx = &Transfer{}
	case KindCreateWallet:
		tx = &CreateWallet{}
	case KindSelectionProbe:
		tx = &SelectionProbe{}
	case KindAddCandidate:
		tx = &AddCandidate{}
	case KindSetVoterList:
		tx = &SetVoterList{}
	default:
		return nil, fmt.Errorf("unknown transaction kind %d", m.Kind)
	}
	if err := rlp.DecodeBytes(m.Body, tx); err != nil {
		return nil, fmt.Errorf("failed to decode %v: %w", m.Kind, err)
	}
	return tx, nil
}

// Verify decodes the transaction of the message and checks its signature and
// internal consistency. Failures are reported as ErrInvalidTransaction.
func (m *Message) Verify() (Transaction, error) {
	tx, err := m.Transaction()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if !tx.Verify() {
		return nil, fmt.Errorf("%w: inconsistent %v", ErrInvalidTransaction, m.Kind)
	}
	if !m.IsSignedBy(tx.Signer()) {
		return nil, fmt.Errorf("%w: invalid signature", ErrInvalidTransaction)
	}
	return tx, nil
}

func (m *Message) payload() ([]byte, error) {
	data, err := rlp.EncodeToBytes(&signedPayload{
		ServiceID: m.ServiceID,
		Kind:      m.Kind,
		Body:      m.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed payload: %w", err)
	}
	return data, nil
}
