package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"

	"rep-protocol/internal/domain"
)

func parseAddress(field, s string) (domain.Address, error) {
	a, err := domain.ParseAddress(s)
	if err != nil {
		return a, fmt.Errorf("%s: %w", field, err)
	}
	return a, nil
}

func parseAmount(field, s string) (*uint256.Int, error) {
	v, err := domain.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func parseDeadline(unix int64) time.Time {
	return time.Unix(unix, 0).UTC()
}

func (s *Server) getAccount(c *gin.Context) {
	account, err := parseAddress("address", c.Param("address"))
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, accountResponse{Address: account, Balance: s.market.Balance(c.Request.Context(), account)})
}

func (s *Server) deposit(c *gin.Context) {
	account, err := parseAddress("address", c.Param("address"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		badRequest(c, err)
		return
	}

	rcpt, err := s.market.Deposit(c.Request.Context(), account, amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newReceiptResponse(rcpt))
}

func (s *Server) createRep(c *gin.Context) {
	var req createRepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		badRequest(c, err)
		return
	}
	creator, err := parseAddress("creator", req.Creator)
	if err != nil {
		badRequest(c, err)
		return
	}
	payment, err := parseAmount("payment", req.Payment)
	if err != nil {
		badRequest(c, err)
		return
	}

	rcpt, err := s.market.CreateRep(c.Request.Context(), caller, req.Ticker, creator, req.RoyaltyBPS, payment)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"address": rcpt.Tx.Token,
		"receipt": newReceiptResponse(rcpt),
	})
}

// getReps answers getRepAddress when ticker and creator are given, and
// lists registry entries otherwise (optionally by creator).
func (s *Server) getReps(c *gin.Context) {
	ticker := c.Query("ticker")
	creatorParam := c.Query("creator")

	var creator domain.Address
	if creatorParam != "" {
		a, err := parseAddress("creator", creatorParam)
		if err != nil {
			badRequest(c, err)
			return
		}
		creator = a
	}

	if ticker != "" {
		if creatorParam == "" {
			badRequest(c, fmt.Errorf("creator is required with ticker"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"address": s.market.GetRepAddress(c.Request.Context(), ticker, creator)})
		return
	}

	entries := make([]entryResponse, 0)
	for _, e := range s.market.Entries(c.Request.Context()) {
		if creatorParam != "" && e.Creator != creator {
			continue
		}
		entries = append(entries, newEntryResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"reps": entries})
}

func (s *Server) tokenParam(c *gin.Context) (domain.Address, bool) {
	token, err := parseAddress("token", c.Param("address"))
	if err != nil {
		badRequest(c, err)
		return token, false
	}
	return token, true
}

func (s *Server) getToken(c *gin.Context) {
	addr, ok := s.tokenParam(c)
	if !ok {
		return
	}
	st, err := s.market.TokenState(c.Request.Context(), addr)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(st))
}

func (s *Server) getTokenBalance(c *gin.Context) {
	token, ok := s.tokenParam(c)
	if !ok {
		return
	}
	holder, err := parseAddress("holder", c.Param("holder"))
	if err != nil {
		badRequest(c, err)
		return
	}
	bal, err := s.market.TokenBalance(c.Request.Context(), token, holder)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "holder": holder, "balance": bal})
}

func (s *Server) quoteMint(c *gin.Context) {
	token, ok := s.tokenParam(c)
	if !ok {
		return
	}
	deposit, err := parseAmount("deposit", c.Query("deposit"))
	if err != nil {
		badRequest(c, err)
		return
	}
	out, err := s.market.QuoteMint(c.Request.Context(), token, deposit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deposit": deposit, "min_out": out})
}

func (s *Server) quoteBurn(c *gin.Context) {
	token, ok := s.tokenParam(c)
	if !ok {
		return
	}
	amount, err := parseAmount("amount", c.Query("amount"))
	if err != nil {
		badRequest(c, err)
		return
	}
	b, err := s.market.QuoteBurn(c.Request.Context(), token, amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, burnQuoteResponse{
		Gross:      b.Gross,
		Fee:        b.Fee,
		Net:        b.Net,
		Royalty:    b.Royalty,
		OwnerShare: b.OwnerShare,
	})
}

// quoteSale evaluates the pure sale function at caller-supplied state.
func (s *Server) quoteSale(c *gin.Context) {
	token, ok := s.tokenParam(c)
	if !ok {
		return
	}
	supply, err := parseAmount("supply", c.Query("supply"))
	if err != nil {
		badRequest(c, err)
		return
	}
	reserve, err := parseAmount("reserve", c.Query("reserve"))
	if err != nil {
		badRequest(c, err)
		return
	}
	amount, err := parseAmount("amount", c.Query("amount"))
	if err != nil {
		badRequest(c, err)
		return
	}

	out, err := s.market.CalculateSaleReturn(token, supply, reserve, amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"return": out})
}

func (s *Server) mint(c *gin.Context) {
	token, ok := s.tokenParam(c)
	if !ok {
		return
	}
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		badRequest(c, err)
		return
	}
	deposit, err := parseAmount("deposit", req.Deposit)
	if err != nil {
		badRequest(c, err)
		return
	}
	minOut, err := parseAmount("min_out", req.MinOut)
	if err != nil {
		badRequest(c, err)
		return
	}

	rcpt, err := s.market.Mint(c.Request.Context(), caller, token, deposit, minOut, parseDeadline(req.Deadline))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newReceiptResponse(rcpt))
}

func (s *Server) burn(c *gin.Context) {
	token, ok := s.tokenParam(c)
	if !ok {
		return
	}
	var req burnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		badRequest(c, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		badRequest(c, err)
		return
	}
	minOut, err := parseAmount("min_out", req.MinOut)
	if err != nil {
		badRequest(c, err)
		return
	}

	rcpt, err := s.market.Burn(c.Request.Context(), caller, token, amount, minOut, parseDeadline(req.Deadline))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newReceiptResponse(rcpt))
}

func (s *Server) changeProjectAddress(c *gin.Context) {
	token, ok := s.tokenParam(c)
	if !ok {
		return
	}
	var req changeProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		badRequest(c, err)
		return
	}
	newAddress, err := parseAddress("new_address", req.NewAddress)
	if err != nil {
		badRequest(c, err)
		return
	}

	rcpt, err := s.market.ChangeProjectAddress(c.Request.Context(), caller, token, newAddress)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newReceiptResponse(rcpt))
}
