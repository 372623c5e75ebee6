package controller

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/JasonRUAN/SecureFileShare/internal/service"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// MaxUploadMemory 为解析 multipart 表单时保存在内存中的最大字节数，超出部分写入临时文件。
const MaxUploadMemory = 64 << 20

// A FileController contains a group name and the file services. It also implements the interface `Controller`.
type FileController struct {
	GroupName    string
	UploadSvc    service.UploadServiceInterface
	RetrievalSvc service.RetrievalServiceInterface
	AccessSvc    service.AccessServiceInterface
	RegistrySvc  service.RegistryServiceInterface
}

// GetGroupName returns the group name.
func (fc *FileController) GetGroupName() string {
	return fc.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by FileController.
func (fc *FileController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"", "POST"}:           []gin.HandlerFunc{fc.handleUploadFiles},
		urlMethodPair{"", "GET"}:            []gin.HandlerFunc{fc.handleListFiles},
		urlMethodPair{":id", "GET"}:         []gin.HandlerFunc{fc.handleGetFile},
		urlMethodPair{":id/content", "GET"}: []gin.HandlerFunc{fc.handleDownloadFile},
		urlMethodPair{":id/grant", "POST"}:  []gin.HandlerFunc{fc.handleGrantAccess},
		urlMethodPair{":id/buy", "POST"}:    []gin.HandlerFunc{fc.handleBuyFile},
		urlMethodPair{":id/add", "POST"}:    []gin.HandlerFunc{fc.handleAddPublicFile},
	}
}

func (fc *FileController) handleUploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, NewFromMsg("无法解析上传表单。"))
		return
	}

	// Validity check
	pel := &ParameterErrorList{}

	modeStr := pel.AppendIfEmptyOrBlankSpaces(c.PostForm("mode"), "访问方式不能为空。")
	mode, err := filereg.NewAccessModeFromString(modeStr)
	if modeStr != "" && err != nil {
		*pel = append(*pel, "访问方式不合法。")
	}

	var price uint64
	if priceStr := c.PostForm("price"); priceStr != "" {
		price = pel.AppendIfNotUint64(priceStr, "价格必须为非负整数。")
	}

	grantees := pel.AppendIfAnyEmptyOrBlankSpaces(c.PostFormArray("grantees"), "被授权者地址不能为空。")

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		*pel = append(*pel, "至少需要上传一个文件。")
	}

	if len(*pel) > 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	description := c.PostForm("description")
	requests := make([]*service.UploadRequest, 0, len(fileHeaders))
	for _, fileHeader := range fileHeaders {
		data, err := readFormFile(fileHeader)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, NewFromMsg(fmt.Sprintf("无法读取文件 '%v'。", fileHeader.Filename)))
			return
		}

		requests = append(requests, &service.UploadRequest{
			Name:        fileHeader.Filename,
			Description: description,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Data:        data,
			Mode:        mode,
			Grantees:    grantees,
			Price:       price,
		})
	}

	result, err := fc.UploadSvc.UploadFiles(c.Request.Context(), requests, logProgress("上传", fmt.Sprintf("%v 个文件", len(requests))))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func readFormFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

func (fc *FileController) handleListFiles(c *gin.Context) {
	scope := c.DefaultQuery("scope", string(service.ScopeMine))

	records, err := fc.RegistrySvc.ListFiles(c.Request.Context(), service.ListScope(scope))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (fc *FileController) handleGetFile(c *gin.Context) {
	id, ok := fileIDFromParam(c)
	if !ok {
		return
	}

	record, err := fc.RegistrySvc.GetFile(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (fc *FileController) handleDownloadFile(c *gin.Context) {
	id, ok := fileIDFromParam(c)
	if !ok {
		return
	}

	file, err := fc.RetrievalSvc.DownloadFile(c.Request.Context(), id, logProgress("下载", id))
	if err != nil {
		abortWithError(c, err)
		return
	}

	contentType := file.Record.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Record.Name))
	c.Header("X-File-Id", file.Record.ID)
	c.Data(http.StatusOK, contentType, file.Data)
}

func (fc *FileController) handleGrantAccess(c *gin.Context) {
	id, ok := fileIDFromParam(c)
	if !ok {
		return
	}

	pel := &ParameterErrorList{}
	grantees := pel.AppendIfAnyEmptyOrBlankSpaces(c.PostFormArray("grantees"), "被授权者地址不能为空。")
	if len(grantees) == 0 {
		*pel = append(*pel, "被授权者列表不能为空。")
	}

	if len(*pel) > 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	txInfo, err := fc.AccessSvc.GrantAccess(c.Request.Context(), id, grantees)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, txInfo)
}

func (fc *FileController) handleBuyFile(c *gin.Context) {
	id, ok := fileIDFromParam(c)
	if !ok {
		return
	}

	txInfo, err := fc.AccessSvc.BuyFile(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, txInfo)
}

func (fc *FileController) handleAddPublicFile(c *gin.Context) {
	id, ok := fileIDFromParam(c)
	if !ok {
		return
	}

	txInfo, err := fc.AccessSvc.AddPublicFile(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, txInfo)
}

func fileIDFromParam(c *gin.Context) (string, bool) {
	pel := &ParameterErrorList{}
	id := pel.AppendIfEmptyOrBlankSpaces(c.Param("id"), "文件 ID 不能为空。")

	if len(*pel) != 0 {
		abortWithParameterErrors(c, pel)
		return "", false
	}

	return id, true
}

// logProgress 返回将进度写入调试日志的回调
func logProgress(action string, subject string) service.ProgressFunc {
	return func(percent int) {
		log.Debugf("%v %v: %v%%", action, subject, percent)
	}
}
