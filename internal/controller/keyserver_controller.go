package controller

import (
	"net/http"

	"github.com/JasonRUAN/SecureFileShare/internal/keyserver"
	keyservermodel "github.com/JasonRUAN/SecureFileShare/pkg/models/keyserver"
	"github.com/gin-gonic/gin"
)

// A KeyServerController exposes a key server over HTTP. It implements the interface `Controller`.
type KeyServerController struct {
	GroupName string
	Server    *keyserver.Server
}

// GetGroupName returns the group name.
func (kc *KeyServerController) GetGroupName() string {
	return kc.GroupName
}

// GetEndpointMap implements part of the interface `Controller`.
func (kc *KeyServerController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"share", "POST"}: []gin.HandlerFunc{kc.handleShareRequest},
		urlMethodPair{"info", "GET"}:   []gin.HandlerFunc{kc.handleGetInfo},
	}
}

func (kc *KeyServerController) handleShareRequest(c *gin.Context) {
	var req keyservermodel.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, &keyservermodel.Refusal{
			Code: keyservermodel.RefusalBadRequest,
			Msg:  "无法解析份额请求。",
		})
		return
	}

	resp, err := kc.Server.HandleShareRequest(c.Request.Context(), &req)
	if err != nil {
		// 拒绝信息与状态码一同返回，客户端据此还原错误类别
		refusal := keyserver.RefusalFromError(err)
		c.AbortWithStatusJSON(keyserver.HTTPStatusOfRefusal(refusal.Code), refusal)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (kc *KeyServerController) handleGetInfo(c *gin.Context) {
	info, err := kc.Server.Info()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, NewFromMsg(err.Error()))
		return
	}

	c.JSON(http.StatusOK, info)
}
