package game

import "errors"

// Guard violations reject the single offending operation and leave the round
// intact for everyone else. Handlers map these to HTTP codes with errors.Is.
var (
	ErrUnknownRound = errors.New("unknown round")
	ErrPhase        = errors.New("operation not valid in current phase")

	ErrInvalidStake = errors.New("stake must be positive")
	ErrDuplicateBet = errors.New("participant already has a bet in this round")
	ErrNoBet        = errors.New("participant has no bet in this round")

	ErrAlreadyCashedOut   = errors.New("bet already cashed out")
	ErrTooLate            = errors.New("cashout at or after the crash point")
	ErrMultiplierAhead    = errors.New("requested multiplier above current live multiplier")
	ErrMultiplierTooSmall = errors.New("requested multiplier below 1.00x")

	ErrBettingWindowOpen = errors.New("minimum betting window has not elapsed")

	ErrEmptyServerSeed = errors.New("server seed is empty")
	ErrEmptyClientSeed = errors.New("client seed is empty")
	ErrNegativeRoundID = errors.New("round id is negative")
)
