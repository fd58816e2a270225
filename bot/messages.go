package bot

// MenuText is the top-level menu shown in Idle and after invalid input.
const MenuText = `Welcome to ETH Wallet Services:
1. Send ETH
2. Withdraw ETH
3. Deposit ETH with M-Pesa
4. Buy Airtime
5. Loans and Savings
6. My Account

Please reply with a number (1-6) to continue.`

const (
	msgSendInfo     = "🔁 Send ETH\nPlease enter the recipient phone number and amount (e.g., 254... or 07...)"
	msgWithdrawInfo = "💵 Withdraw ETH\nPlease enter your withdrawal amount and M-Pesa number."
	msgAirtimeInfo  = "📲 Buy Airtime\nEnter amount and phone number (e.g., 50 0712345678)."
	msgSavingsInfo  = "💰 Loans and Savings\nReply with:\n1. Apply for Loan\n2. Save ETH\n3. Loan Balance"

	msgDepositPhonePrompt  = "📥 Deposit ETH with M-Pesa\nEnter your phone number (e.g., 07xxxxxxxx):"
	msgDepositAmountPrompt = "✅ Phone number received.\nPlease enter the amount to deposit (e.g., 100):"

	msgInvalidOption = "❌ Invalid option. Please enter a number between 1 and 6."
	msgInvalidPhone  = "❌ Invalid phone number. Please enter a valid Safaricom number starting with 07..."
	msgInvalidAmount = "❌ Invalid amount. Please enter a valid number greater than 0."

	msgNoAccount = "⚠️ No account info found. Try depositing first."

	msgProviderFailed    = "❌ Failed to send STK push. "
	msgProviderFallback  = "Please try again."
	msgRateUnavailable   = "❌ Failed to fetch ETH rate. Please try again later."
	msgCreditFailedFmt   = "❌ Payment was initiated but we could not credit your account. Contact support with reference %s."
	msgDepositSuccessFmt = "Transaction of KES %s to %s successful. ETH credited to your account.\nReference: %s"

	msgTextOnly = "Please send text. Reply with a number (1-6) to continue."
)
