package paxos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemDurableLog_ReadMissingSeq(t *testing.T) {
	log := NewMemDurableLog()
	_, ok := log.Read(0)
	assert.False(t, ok)
	assert.Equal(t, NoLogEntry, log.GreatestSeqWithRecord())
}

func TestMemDurableLog_WriteAndRead(t *testing.T) {
	log := NewMemDurableLog()
	rec := Record{Promise: Promise{PromisedNum: ProposalNumber{Number: 1}}}

	assert.NoError(t, log.WriteAndFlush(3, rec))

	got, ok := log.Read(3)
	assert.True(t, ok)
	assert.Equal(t, rec, got)
	assert.Equal(t, SeqNum(3), log.GreatestSeqWithRecord())
}

func TestMemDurableLog_GreatestTracksHighestSeqOnly(t *testing.T) {
	log := NewMemDurableLog()
	assert.NoError(t, log.WriteAndFlush(5, Record{}))
	assert.NoError(t, log.WriteAndFlush(2, Record{}))
	assert.Equal(t, SeqNum(5), log.GreatestSeqWithRecord())
}

func TestMemDurableLog_CorruptFailsFutureWrites(t *testing.T) {
	log := NewMemDurableLog()
	assert.NoError(t, log.WriteAndFlush(0, Record{}))

	log.Corrupt()
	assert.ErrorIs(t, log.WriteAndFlush(1, Record{}), ErrLogCorrupted)

	// reads of already-durable data still succeed.
	_, ok := log.Read(0)
	assert.True(t, ok)
}
