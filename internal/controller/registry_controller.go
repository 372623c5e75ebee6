package controller

import (
	"net/http"

	"github.com/JasonRUAN/SecureFileShare/internal/service"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/gin-gonic/gin"
)

// BalanceInfo 为余额查询的结果
type BalanceInfo struct {
	Address string  `json:"address,omitempty"`
	Balance uint64  `json:"balance"` // 最小货币单位
	Tokens  float64 `json:"tokens"`
}

// StatsInfo 为注册表统计信息
type StatsInfo struct {
	TotalFiles uint64 `json:"totalFiles"`
}

// A RegistryController serves balances and registry statistics. It implements the interface `Controller`.
type RegistryController struct {
	GroupName   string
	RegistrySvc service.RegistryServiceInterface
}

// GetGroupName returns the group name.
func (rc *RegistryController) GetGroupName() string {
	return rc.GroupName
}

// GetEndpointMap implements part of the interface `Controller`.
func (rc *RegistryController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"balance", "GET"}:  []gin.HandlerFunc{rc.handleGetBalance},
		urlMethodPair{"balance", "POST"}: []gin.HandlerFunc{rc.handleDeposit},
		urlMethodPair{"stats", "GET"}:    []gin.HandlerFunc{rc.handleGetStats},
	}
}

func (rc *RegistryController) handleGetBalance(c *gin.Context) {
	address := c.Query("address")

	balance, err := rc.RegistrySvc.GetBalance(c.Request.Context(), address)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newBalanceInfo(address, balance))
}

func (rc *RegistryController) handleDeposit(c *gin.Context) {
	pel := &ParameterErrorList{}
	amount := pel.AppendIfNotPositiveUint64(c.PostForm("amount"), "存入数量必须为正整数。")

	if len(*pel) > 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	txInfo, err := rc.RegistrySvc.Deposit(c.Request.Context(), amount)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, txInfo)
}

func (rc *RegistryController) handleGetStats(c *gin.Context) {
	total, err := rc.RegistrySvc.GetTotalFiles(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatsInfo{TotalFiles: total})
}

func newBalanceInfo(address string, balance uint64) *BalanceInfo {
	return &BalanceInfo{
		Address: address,
		Balance: balance,
		Tokens:  float64(balance) / float64(filereg.TokenUnit),
	}
}
