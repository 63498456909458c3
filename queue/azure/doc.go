/*
Package azure wires go.bryk.io/queue to Azure Storage: QueueService is
backed by Azure Storage Queues and BlobService by Azure Blob Storage,
together forming the pair a queue.Provider needs to operate against a real
account.

	settings, err := azure.ParseConnectionString(os.Getenv("AZURE_STORAGE_CONNECTION_STRING"))
	if err != nil {
		panic(err)
	}
	cred, err := service.NewSharedKeyCredential(settings.AccountName, settings.AccountKey)
	if err != nil {
		panic(err)
	}
	queueCred, err := azqueue.NewSharedKeyCredential(settings.AccountName, settings.AccountKey)
	if err != nil {
		panic(err)
	}

	qs, err := azure.NewQueueService(settings.QueueServiceURL(), queueCred)
	if err != nil {
		panic(err)
	}
	bs, err := azure.NewBlobService(settings.BlobServiceURL(), cred)
	if err != nil {
		panic(err)
	}

	provider, err := queue.NewProvider(qs, bs)

Both services accept an azcore.TokenCredential instead, for deployments
authenticating through Azure Active Directory (managed identity or
workload identity) rather than an account key.
*/
package azure
